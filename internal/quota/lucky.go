package quota

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dtroode/dreamluck-server/internal/model"
)

const (
	// LuckyMin and LuckyMax bound every lucky number, inclusive.
	LuckyMin = 1
	LuckyMax = 45
	// SetSize is how many distinct numbers a premium set holds.
	SetSize = 6
	// SetCount is how many premium sets are drawn per week.
	SetCount = 2
)

// Rand is the randomness source the artifact draws use.
type Rand interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
}

// LockedRand is a Rand seeded from crypto/rand and safe for concurrent use.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand returns a freshly seeded LockedRand.
func NewLockedRand() *LockedRand {
	var seed [16]byte
	_, _ = crand.Read(seed[:])
	src := rand.NewPCG(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:]))
	return &LockedRand{r: rand.New(src)}
}

func (l *LockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// WeeklyNumber returns the account's lucky number for weekKey, drawing a new one only
// when the cached number belongs to another week.
func WeeklyNumber(account model.Account, weekKey string, rng Rand) (int, model.Account) {
	if account.WeeklyLuckyWeekKey == weekKey && account.WeeklyLuckyNumber != 0 {
		return account.WeeklyLuckyNumber, account
	}
	n := LuckyMin + rng.IntN(LuckyMax-LuckyMin+1)
	account.WeeklyLuckyNumber = n
	account.WeeklyLuckyWeekKey = weekKey
	return n, account
}

// PremiumNumberSets returns the account's premium sets for weekKey, drawing new ones only
// when the cached sets belong to another week.
func PremiumNumberSets(account model.Account, weekKey string, rng Rand) ([][]int, model.Account) {
	if account.PremiumLuckyWeekKey == weekKey && len(account.PremiumLuckySets) == SetCount {
		return account.PremiumLuckySets, account
	}
	sets := make([][]int, SetCount)
	for i := range sets {
		sets[i] = drawSet(rng)
	}
	account.PremiumLuckySets = sets
	account.PremiumLuckyWeekKey = weekKey
	return sets, account
}

// drawSet samples SetSize distinct numbers without replacement and sorts them.
func drawSet(rng Rand) []int {
	pool := make([]int, 0, LuckyMax-LuckyMin+1)
	for n := LuckyMin; n <= LuckyMax; n++ {
		pool = append(pool, n)
	}
	set := make([]int, 0, SetSize)
	for range SetSize {
		i := rng.IntN(len(pool))
		set = append(set, pool[i])
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	slices.Sort(set)
	return set
}

// FormatSet renders a set the way it is shown and stored on premium records: "3, 9, 12, 20, 33, 41".
func FormatSet(set []int) string {
	parts := make([]string, len(set))
	for i, n := range set {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// FormatSets applies FormatSet to every set.
func FormatSets(sets [][]int) []string {
	out := make([]string, len(sets))
	for i, s := range sets {
		out[i] = FormatSet(s)
	}
	return out
}
