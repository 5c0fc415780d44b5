package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/mocks"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/testutil"
)

type dreamFixture struct {
	accounts  *memAccounts
	dreams    *mocks.DreamStore
	premium   *mocks.PremiumDreamStore
	generator *mocks.Generator
	publisher *mocks.EventPublisher
	clock     *clock.Fixed
	recorder  *fakeRecorder
	service   *Dream
}

func newDreamFixture(t *testing.T, accounts ...model.Account) *dreamFixture {
	t.Helper()
	f := &dreamFixture{
		accounts:  newMemAccounts(accounts...),
		dreams:    &mocks.DreamStore{},
		premium:   &mocks.PremiumDreamStore{},
		generator: &mocks.Generator{},
		publisher: &mocks.EventPublisher{},
		clock:     clock.NewFixed(testNow),
		recorder:  &fakeRecorder{},
	}
	log := testutil.MakeNoopLogger()
	ledger := NewLedger(f.accounts, 3, log)
	artifacts := NewArtifacts(ledger, f.clock, fixedRand{n: 0}, log)
	f.service = NewDream(ledger, f.dreams, f.premium, f.generator, artifacts, f.publisher, f.clock, f.recorder, log)
	return f
}

func pendingMatcher(userID, text string) interface{} {
	return mock.MatchedBy(func(r model.DreamRecord) bool {
		return r.UserID == userID && r.InputText == text && r.Status == model.DreamStatusPending && r.ID != uuid.Nil
	})
}

func TestDream_RequestFreeInterpretation_Success(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	recordID := uuid.New()

	f.dreams.On("Create", mock.Anything, pendingMatcher("u1", "하늘을 나는 꿈")).
		Return(model.DreamRecord{ID: recordID, UserID: "u1", Status: model.DreamStatusPending}, nil)
	f.generator.On("Interpretation", mock.Anything, model.PromptContext{DreamText: "하늘을 나는 꿈", Birthdate: "1990-01-01", MBTI: "INTP"}).
		Return("자유를 뜻합니다", nil)
	f.generator.On("ColorName", mock.Anything, "하늘을 나는 꿈").Return("파란색.", nil)
	f.dreams.On("Complete", mock.Anything, recordID, "자유를 뜻합니다", "blue").
		Return(model.DreamRecord{ID: recordID, Status: model.DreamStatusComplete}, nil)

	res, err := f.service.RequestFreeInterpretation(context.Background(), "u1", "하늘을 나는 꿈")
	require.NoError(t, err)
	assert.Equal(t, recordID, res.RecordID)
	assert.Equal(t, "blue", res.Color)
	assert.Equal(t, "자유를 뜻합니다", res.Interpretation)

	stored := f.accounts.get(t, "u1")
	assert.Equal(t, 0, stored.FreeQuota)
	assert.Equal(t, testToday, stored.LastFreeResetDate)
	assert.Equal(t, "blue", stored.LastColor)

	assert.Equal(t, []model.EventType{model.EventDreamCompleted}, f.publisher.Types())
	assert.Equal(t, []recordedDecision{{"free", "admit", "new_day"}}, f.recorder.decisions)
	f.dreams.AssertExpectations(t)
	f.generator.AssertExpectations(t)
}

func TestDream_RequestFreeInterpretation_Denied(t *testing.T) {
	exhausted := signedUp("u1")
	exhausted.LastFreeResetDate = testToday
	exhausted.FreeQuota = 0

	notSigned := signedUp("u2")
	notSigned.SignupCompleted = false

	tests := []struct {
		name    string
		account model.Account
		userID  string
		setup   func(*dreamFixture)
		wantErr error
	}{
		{name: "quota exhausted", account: exhausted, userID: "u1", wantErr: model.ErrQuotaExceeded},
		{name: "signup incomplete", account: notSigned, userID: "u2", wantErr: model.ErrSignupIncomplete},
		{name: "unknown account", account: exhausted, userID: "ghost", wantErr: model.ErrAccountNotFound},
		{
			name: "clock unavailable", account: signedUp("u3"), userID: "u3",
			setup:   func(f *dreamFixture) { f.clock.Fail(clock.ErrUnavailable) },
			wantErr: clock.ErrUnavailable,
		},
		{
			name: "store read fails", account: signedUp("u4"), userID: "u4",
			setup:   func(f *dreamFixture) { f.accounts.getErr = errors.New("connection refused") },
			wantErr: model.ErrStoreUnavailable,
		},
		{
			name: "commit fails", account: signedUp("u5"), userID: "u5",
			setup:   func(f *dreamFixture) { f.accounts.updateErr = errors.New("connection reset") },
			wantErr: model.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDreamFixture(t, tt.account)
			if tt.setup != nil {
				tt.setup(f)
			}
			before := f.accounts.get(t, tt.account.ID)

			_, err := f.service.RequestFreeInterpretation(context.Background(), tt.userID, "꿈")
			require.ErrorIs(t, err, tt.wantErr)

			f.dreams.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.generator.AssertNotCalled(t, "Interpretation", mock.Anything, mock.Anything)
			f.generator.AssertNotCalled(t, "ColorName", mock.Anything, mock.Anything)
			assert.Equal(t, before, f.accounts.get(t, tt.account.ID))
			assert.Empty(t, f.publisher.Events)
		})
	}
}

func TestDream_RequestFreeInterpretation_RetriesVersionConflict(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	f.accounts.conflicts = 2
	recordID := uuid.New()

	f.dreams.On("Create", mock.Anything, mock.Anything).Return(model.DreamRecord{ID: recordID, UserID: "u1"}, nil)
	f.generator.On("Interpretation", mock.Anything, mock.Anything).Return("ok", nil).Once()
	f.generator.On("ColorName", mock.Anything, mock.Anything).Return("red", nil).Once()
	f.dreams.On("Complete", mock.Anything, recordID, "ok", "red").Return(model.DreamRecord{}, nil)

	_, err := f.service.RequestFreeInterpretation(context.Background(), "u1", "꿈")
	require.NoError(t, err)

	// Two conflicts, one successful quota write, one last color write.
	assert.Equal(t, 4, f.accounts.updates)
	assert.Equal(t, 0, f.accounts.get(t, "u1").FreeQuota)
	f.generator.AssertNumberOfCalls(t, "Interpretation", 1)
}

func TestDream_RequestFreeInterpretation_ConflictsExhausted(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	f.accounts.conflicts = 10

	_, err := f.service.RequestFreeInterpretation(context.Background(), "u1", "꿈")
	require.ErrorIs(t, err, model.ErrVersionConflict)

	assert.Equal(t, 3, f.accounts.updates)
	f.generator.AssertNotCalled(t, "Interpretation", mock.Anything, mock.Anything)
}

func TestDream_RequestFreeInterpretation_GenerationFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mocks.Generator)
	}{
		{
			name: "interpretation fails",
			setup: func(g *mocks.Generator) {
				g.On("Interpretation", mock.Anything, mock.Anything).Return("", errors.New("provider down"))
			},
		},
		{
			name: "color fails",
			setup: func(g *mocks.Generator) {
				g.On("Interpretation", mock.Anything, mock.Anything).Return("ok", nil)
				g.On("ColorName", mock.Anything, mock.Anything).Return("", model.ErrGenerationFailed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDreamFixture(t, signedUp("u1"))
			recordID := uuid.New()
			f.dreams.On("Create", mock.Anything, mock.Anything).Return(model.DreamRecord{ID: recordID, UserID: "u1"}, nil)
			f.dreams.On("MarkFailed", mock.Anything, recordID).Return(nil)
			tt.setup(f.generator)

			_, err := f.service.RequestFreeInterpretation(context.Background(), "u1", "꿈")
			require.ErrorIs(t, err, model.ErrGenerationFailed)

			stored := f.accounts.get(t, "u1")
			assert.Equal(t, 0, stored.FreeQuota, "quota is not refunded")
			assert.Equal(t, testToday, stored.LastFreeResetDate)

			f.dreams.AssertCalled(t, "MarkFailed", mock.Anything, recordID)
			f.dreams.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, []model.EventType{model.EventDreamFailed}, f.publisher.Types())
		})
	}
}

func TestDream_RequestFreeInterpretation_CancelledLeavesPending(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.dreams.On("Create", mock.Anything, mock.Anything).Return(model.DreamRecord{ID: uuid.New(), UserID: "u1"}, nil)
	f.generator.On("Interpretation", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	_, err := f.service.RequestFreeInterpretation(ctx, "u1", "꿈")
	require.ErrorIs(t, err, model.ErrGenerationFailed)
	require.ErrorIs(t, err, context.Canceled)

	f.dreams.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.Events)
}

func TestDream_RequestFreeInterpretation_PendingCreateFails(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	f.dreams.On("Create", mock.Anything, mock.Anything).Return(model.DreamRecord{}, errors.New("disk full"))

	_, err := f.service.RequestFreeInterpretation(context.Background(), "u1", "꿈")
	require.ErrorIs(t, err, model.ErrStoreUnavailable)
	f.generator.AssertNotCalled(t, "Interpretation", mock.Anything, mock.Anything)
}

func TestDream_RequestFreeInterpretation_PublisherFailureIgnored(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	f.publisher.Err = errors.New("broker down")
	recordID := uuid.New()

	f.dreams.On("Create", mock.Anything, mock.Anything).Return(model.DreamRecord{ID: recordID, UserID: "u1"}, nil)
	f.generator.On("Interpretation", mock.Anything, mock.Anything).Return("ok", nil)
	f.generator.On("ColorName", mock.Anything, mock.Anything).Return("에메랄드", nil)
	f.dreams.On("Complete", mock.Anything, recordID, "ok", "gray").Return(model.DreamRecord{}, nil)

	res, err := f.service.RequestFreeInterpretation(context.Background(), "u1", "꿈")
	require.NoError(t, err)
	assert.Equal(t, "gray", res.Color)
}

func premiumMatcher(userID string) interface{} {
	return mock.MatchedBy(func(r model.PremiumDreamRecord) bool {
		return r.UserID == userID && len(r.LuckyNumberSets) == 2
	})
}

func TestDream_RequestPremiumInterpretation_Success(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	account := f.accounts.get(t, "u1")
	recordID := uuid.New()

	f.generator.On("ProfileSummary", mock.Anything, model.SummaryMBTI, account.Profile).Return("논리적", nil)
	f.generator.On("ProfileSummary", mock.Anything, model.SummarySaju, account.Profile).Return("", errors.New("timeout"))
	f.generator.On("PremiumInterpretation", mock.Anything, model.PremiumPromptContext{
		DreamText:   "바다",
		MBTISummary: "논리적",
		SajuSummary: FallbackSajuSummary,
	}).Return("긴 해몽", nil)
	f.premium.On("Create", mock.Anything, premiumMatcher("u1")).Return(model.PremiumDreamRecord{
		ID:              recordID,
		UserID:          "u1",
		Interpretation:  "긴 해몽",
		MBTISummary:     "논리적",
		SajuSummary:     FallbackSajuSummary,
		LuckyNumberSets: []string{"1, 41, 42, 43, 44, 45", "1, 41, 42, 43, 44, 45"},
	}, nil)

	res, err := f.service.RequestPremiumInterpretation(context.Background(), "u1", "바다")
	require.NoError(t, err)
	assert.Equal(t, recordID, res.RecordID)
	assert.Equal(t, FallbackSajuSummary, res.SajuSummary)
	assert.Len(t, res.LuckyNumberSets, 2)

	stored := f.accounts.get(t, "u1")
	assert.Equal(t, 0, stored.PremiumQuota)
	assert.Len(t, stored.PremiumLuckySets, 2)
	assert.Equal(t, clock.WeekKey(testToday), stored.PremiumLuckyWeekKey)

	assert.Equal(t, []model.EventType{model.EventPremiumDreamCompleted}, f.publisher.Types())
	f.generator.AssertExpectations(t)
	f.premium.AssertExpectations(t)
}

func TestDream_RequestPremiumInterpretation_Denied(t *testing.T) {
	noPremium := signedUp("u1")
	noPremium.PremiumQuota = 0

	incomplete := signedUp("u2")
	incomplete.Profile.BirthTime = model.ProfileUnknown

	notSigned := signedUp("u3")
	notSigned.SignupCompleted = false

	tests := []struct {
		name    string
		account model.Account
		wantErr error
	}{
		{name: "no premium quota", account: noPremium, wantErr: model.ErrQuotaExceeded},
		{name: "profile incomplete", account: incomplete, wantErr: model.ErrProfileIncomplete},
		{name: "signup incomplete", account: notSigned, wantErr: model.ErrSignupIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDreamFixture(t, tt.account)

			_, err := f.service.RequestPremiumInterpretation(context.Background(), tt.account.ID, "꿈")
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, tt.account.PremiumQuota, f.accounts.get(t, tt.account.ID).PremiumQuota)
			assert.Equal(t, 0, f.accounts.updates)
			f.generator.AssertNotCalled(t, "ProfileSummary", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDream_RequestPremiumInterpretation_FinalCallFails(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))

	f.generator.On("ProfileSummary", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("down"))
	f.generator.On("PremiumInterpretation", mock.Anything, model.PremiumPromptContext{
		DreamText:   "꿈",
		MBTISummary: FallbackMBTISummary,
		SajuSummary: FallbackSajuSummary,
	}).Return("", errors.New("down"))

	_, err := f.service.RequestPremiumInterpretation(context.Background(), "u1", "꿈")
	require.ErrorIs(t, err, model.ErrGenerationFailed)

	assert.Equal(t, 0, f.accounts.get(t, "u1").PremiumQuota, "premium quota is not refunded")
	f.premium.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.Events)
}

func TestDream_RequestPremiumInterpretation_LuckyNumbersFail(t *testing.T) {
	f := newDreamFixture(t, signedUp("u1"))
	f.clock.Fail(clock.ErrUnavailable)

	f.generator.On("ProfileSummary", mock.Anything, mock.Anything, mock.Anything).Return("요약", nil)
	f.generator.On("PremiumInterpretation", mock.Anything, mock.Anything).Return("긴 해몽", nil)

	_, err := f.service.RequestPremiumInterpretation(context.Background(), "u1", "꿈")
	require.ErrorIs(t, err, clock.ErrUnavailable)

	stored := f.accounts.get(t, "u1")
	assert.Equal(t, 0, stored.PremiumQuota, "premium quota is not refunded")
	assert.Empty(t, stored.PremiumLuckySets)
	f.generator.AssertCalled(t, "PremiumInterpretation", mock.Anything, mock.Anything)
	f.premium.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.publisher.Events)
}

func TestDream_ReadSideOwnership(t *testing.T) {
	f := newDreamFixture(t)
	mine, theirs := uuid.New(), uuid.New()

	f.dreams.On("GetByID", mock.Anything, mine).Return(model.DreamRecord{ID: mine, UserID: "u1"}, nil)
	f.dreams.On("GetByID", mock.Anything, theirs).Return(model.DreamRecord{ID: theirs, UserID: "u2"}, nil)
	f.premium.On("GetByID", mock.Anything, theirs).Return(model.PremiumDreamRecord{ID: theirs, UserID: "u2"}, nil)

	got, err := f.service.GetDream(context.Background(), "u1", mine)
	require.NoError(t, err)
	assert.Equal(t, mine, got.ID)

	_, err = f.service.GetDream(context.Background(), "u1", theirs)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.service.GetPremiumDream(context.Background(), "u1", theirs)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDream_ListLimits(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultListLimit},
		{-3, DefaultListLimit},
		{5, 5},
		{1000, MaxListLimit},
	}

	for _, tt := range tests {
		f := newDreamFixture(t)
		f.dreams.On("ListByUser", mock.Anything, "u1", tt.want).Return([]model.DreamRecord{}, nil)
		f.premium.On("ListByUser", mock.Anything, "u1", tt.want).Return([]model.PremiumDreamRecord{}, nil)

		_, err := f.service.ListDreams(context.Background(), "u1", tt.in)
		require.NoError(t, err)
		_, err = f.service.ListPremiumDreams(context.Background(), "u1", tt.in)
		require.NoError(t, err)

		f.dreams.AssertExpectations(t)
		f.premium.AssertExpectations(t)
	}
}
