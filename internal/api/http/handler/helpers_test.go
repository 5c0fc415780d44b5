package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	httpctx "github.com/dtroode/dreamluck-server/internal/api/http/context"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/service"
)

const testUser = "kakao:1001"

// request builds an echo context for a handler call. An empty user leaves the
// request unauthenticated.
func request(t *testing.T, method, target, body, user string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req = req.WithContext(httpctx.NewManager().SetUserIDToContext(req.Context(), user))
	}

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.True(t, gjson.Valid(rec.Body.String()), rec.Body.String())
	return gjson.Get(rec.Body.String(), "error").String()
}

type accountService struct{ mock.Mock }

func (m *accountService) Bootstrap(ctx context.Context, userID, email string) (model.Account, bool, error) {
	args := m.Called(ctx, userID, email)
	return args.Get(0).(model.Account), args.Bool(1), args.Error(2)
}

func (m *accountService) CompleteSignup(ctx context.Context, userID string, profile model.Profile) (model.Account, error) {
	args := m.Called(ctx, userID, profile)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *accountService) Get(ctx context.Context, userID string) (model.Account, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *accountService) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type dreamService struct{ mock.Mock }

func (m *dreamService) RequestFreeInterpretation(ctx context.Context, userID, dreamText string) (service.FreeResult, error) {
	args := m.Called(ctx, userID, dreamText)
	return args.Get(0).(service.FreeResult), args.Error(1)
}

func (m *dreamService) RequestPremiumInterpretation(ctx context.Context, userID, dreamText string) (service.PremiumResult, error) {
	args := m.Called(ctx, userID, dreamText)
	return args.Get(0).(service.PremiumResult), args.Error(1)
}

func (m *dreamService) GetDream(ctx context.Context, userID string, id uuid.UUID) (model.DreamRecord, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.DreamRecord), args.Error(1)
}

func (m *dreamService) ListDreams(ctx context.Context, userID string, limit int) ([]model.DreamRecord, error) {
	args := m.Called(ctx, userID, limit)
	records, _ := args.Get(0).([]model.DreamRecord)
	return records, args.Error(1)
}

func (m *dreamService) GetPremiumDream(ctx context.Context, userID string, id uuid.UUID) (model.PremiumDreamRecord, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.PremiumDreamRecord), args.Error(1)
}

func (m *dreamService) ListPremiumDreams(ctx context.Context, userID string, limit int) ([]model.PremiumDreamRecord, error) {
	args := m.Called(ctx, userID, limit)
	records, _ := args.Get(0).([]model.PremiumDreamRecord)
	return records, args.Error(1)
}

type bonusService struct{ mock.Mock }

func (m *bonusService) GrantShareBonus(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *bonusService) ShareDream(ctx context.Context, userID string, dreamID uuid.UUID) (service.ShareResult, error) {
	args := m.Called(ctx, userID, dreamID)
	return args.Get(0).(service.ShareResult), args.Error(1)
}

func (m *bonusService) SharedDream(ctx context.Context, dreamID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, dreamID)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func (m *bonusService) UnshareDream(ctx context.Context, userID string, dreamID uuid.UUID) error {
	args := m.Called(ctx, userID, dreamID)
	return args.Error(0)
}

func (m *bonusService) AdjustPremium(ctx context.Context, userID string, delta int) (model.Account, error) {
	args := m.Called(ctx, userID, delta)
	return args.Get(0).(model.Account), args.Error(1)
}

type artifactService struct{ mock.Mock }

func (m *artifactService) WeeklyArtifacts(ctx context.Context, userID string) (service.WeeklyArtifacts, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(service.WeeklyArtifacts), args.Error(1)
}
