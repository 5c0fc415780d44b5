package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	// Embedded zone database so Asia/Seoul resolves on minimal images.
	_ "time/tzdata"
)

// DefaultZone is the civil calendar all quota boundaries are computed in.
const DefaultZone = "Asia/Seoul"

// ErrUnavailable is returned when the current civil date cannot be determined.
var ErrUnavailable = errors.New("clock unavailable")

// Clock resolves the current instant and the civil "today" in a fixed time zone.
type Clock interface {
	Now() time.Time
	Today() (Date, error)
	WeekKey() (string, error)
}

// Civil is a wall clock pinned to a single location.
type Civil struct {
	loc *time.Location
	now func() time.Time
}

// NewCivil creates a Civil clock for the named IANA zone.
func NewCivil(zone string) (*Civil, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", zone, err)
	}
	return &Civil{loc: loc, now: time.Now}, nil
}

// Now returns the current instant in the clock's location.
func (c *Civil) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current civil date.
func (c *Civil) Today() (Date, error) {
	if c == nil || c.loc == nil {
		return Date{}, ErrUnavailable
	}
	return DateOf(c.Now()), nil
}

// WeekKey returns the ISO week key of the current civil date.
func (c *Civil) WeekKey() (string, error) {
	today, err := c.Today()
	if err != nil {
		return "", err
	}
	return WeekKey(today), nil
}

// Fixed is a Clock frozen at a settable instant. Safe for concurrent use.
type Fixed struct {
	mu  sync.Mutex
	t   time.Time
	err error
}

// NewFixed returns a Fixed clock set to t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Set moves the clock.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Fail makes Today and WeekKey return err until Fail(nil) is called.
func (f *Fixed) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Today() (Date, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Date{}, f.err
	}
	return DateOf(f.t), nil
}

func (f *Fixed) WeekKey() (string, error) {
	today, err := f.Today()
	if err != nil {
		return "", err
	}
	return WeekKey(today), nil
}
