package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/metrics"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
	"mastersrl/carnivalhub/internal/service"
	jwtpkg "mastersrl/carnivalhub/pkg/jwt"
)

type oneEventSource struct{ date time.Time }

func (s oneEventSource) Name() string { return "test" }

func (s oneEventSource) Fetch(context.Context) ([]model.ExternalEvent, error) {
	return []model.ExternalEvent{{
		ExternalID:      "ms-1",
		Title:           "Sunshine Coast Masters",
		Date:            s.date,
		State:           model.StateQLD,
		LocationAddress: "Kawana Sports Precinct",
	}}, nil
}

type api struct {
	t      *testing.T
	router *gin.Engine
	auth   *service.AuthService
	events *event.Recorder
}

func newAPI(t *testing.T, features config.FeaturesConfig) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	events := &event.Recorder{}
	deps := service.Deps{
		Store:     repository.NewMemoryStore(),
		Publisher: events,
		Clock:     service.NewSystemClock(),
		Logger:    zap.NewNop(),
		Metrics:   metrics.New(reg),
	}
	invite := config.InviteConfig{DelegateTTL: 7 * 24 * time.Hour, ProxyTTL: 14 * 24 * time.Hour}
	auth := service.NewAuthService(deps, jwtpkg.NewManager("test-signing-key", "carnivalhub", time.Hour))
	carnivals := service.NewCarnivalService(deps)
	ownership := service.NewOwnershipService(deps)
	attendance := service.NewAttendanceService(deps)
	delegates := service.NewDelegateService(deps, service.NewTokenMinter(invite))
	directory := service.NewDirectoryService(deps)
	source := oneEventSource{date: time.Now().UTC().AddDate(0, 3, 0).Truncate(24 * time.Hour)}
	ingest := service.NewIngestService(deps, source, repository.NewMemoryStateStore(), time.Minute)

	cfg := &config.Config{Server: config.ServerConfig{Mode: "test"}, Features: features}
	router := SetupRouter(cfg, zap.NewNop(), reg, Handlers{
		Auth:          NewAuthHandler(auth),
		Carnivals:     NewCarnivalHandler(carnivals, ownership, attendance, directory),
		Clubs:         NewClubHandler(delegates, ownership, directory),
		Subscriptions: NewSubscriptionHandler(service.NewSubscriptionService(deps)),
		Admin:         NewAdminHandler(ingest, nil, delegates, directory),
		Authenticator: auth,
	})
	return &api{t: t, router: router, auth: auth, events: events}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *api) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (a *api) signUp(email string) string {
	a.t.Helper()
	code, _ := a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "display_name": "Test Delegate", "password": "correct-horse",
	})
	require.Equal(a.t, http.StatusCreated, code)
	return a.login(email, "correct-horse")
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code)
	var ts service.TokenSet
	require.NoError(a.t, json.Unmarshal(env.Data, &ts))
	return ts.AccessToken
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{})
	token := a.signUp("delegate@example.com")

	code, env := a.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var me model.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "delegate@example.com", me.Email)

	code, _ = a.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, "/api/v1/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "delegate@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCarnivalLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{})
	token := a.signUp("organiser@example.com")

	code, _ := a.do(http.MethodPost, "/api/v1/carnivals", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/v1/clubs", token, gin.H{"club_name": "Redcliffe Dolphins Masters", "state": "QLD"})
	require.Equal(t, http.StatusCreated, code)

	date := time.Now().UTC().AddDate(0, 2, 0).Truncate(24 * time.Hour)
	code, env := a.do(http.MethodPost, "/api/v1/carnivals", token, gin.H{
		"title":            "Bribie Island Masters Carnival",
		"date":             date,
		"state":            "QLD",
		"location_address": "Bribie Island Sports Complex",
	})
	require.Equal(t, http.StatusCreated, code)
	var created model.Carnival
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Bribie Island Masters Carnival", created.Title)
	assert.Contains(t, a.events.Kinds(), event.CarnivalCreated)

	code, env = a.do(http.MethodGet, "/api/v1/carnivals?state=QLD", "", nil)
	require.Equal(t, http.StatusOK, code)
	var listed []model.Carnival
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	code, _ = a.do(http.MethodGet, "/api/v1/carnivals?state=XX", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodGet, "/api/v1/carnivals/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodGet, "/api/v1/carnivals/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestInvalidInputReportsFields(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{})

	code, env := a.do(http.MethodPost, "/api/v1/subscriptions", "", gin.H{"email": "not-an-email", "states": []string{"QLD"}})
	require.Equal(t, http.StatusBadRequest, code)
	var data struct {
		Fields []service.FieldError `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Fields)

	code, _ = a.do(http.MethodPost, "/api/v1/unsubscribe/no-such-token", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminRoutes(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{})
	user := a.signUp("someone@example.com")

	code, _ := a.do(http.MethodPost, "/api/v1/admin/ingest", user, nil)
	assert.Equal(t, http.StatusForbidden, code)

	require.NoError(t, a.auth.EnsureAdmin(context.Background(), "admin@example.com", "admin-password"))
	admin := a.login("admin@example.com", "admin-password")

	code, env := a.do(http.MethodPost, "/api/v1/admin/ingest", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var report service.IngestReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Inserted)

	code, _ = a.do(http.MethodGet, "/api/v1/admin/ingest", admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodPost, "/api/v1/admin/tokens/purge", admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestMaintenanceMode(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{MaintenanceMode: true})

	code, _ := a.do(http.MethodGet, "/api/v1/carnivals", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestComingSoonAllowsSubscriptions(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{ComingSoonMode: true})

	code, _ := a.do(http.MethodGet, "/api/v1/clubs", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = a.do(http.MethodPost, "/api/v1/subscriptions", "", gin.H{"email": "fan@example.com", "states": []string{"NSW"}})
	assert.Equal(t, http.StatusOK, code)
}

func TestUnlistedClubProfileNeedsManager(t *testing.T) {
	a := newAPI(t, config.FeaturesConfig{})
	token := a.signUp("sponsor@example.com")
	code, _ := a.do(http.MethodPost, "/api/v1/clubs", token, gin.H{"club_name": "Norths Devils Masters", "state": "QLD"})
	require.Equal(t, http.StatusCreated, code)

	code, env := a.do(http.MethodPost, "/api/v1/clubs/proxy", token, gin.H{
		"club":         gin.H{"club_name": "Wynnum Manly Masters", "state": "QLD"},
		"invite_email": "newdelegate@example.com",
	})
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		Club model.Club `json:"club"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := "/api/v1/clubs/" + strconv.FormatUint(uint64(created.Club.ID), 10)

	code, _ = a.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, a.auth.EnsureAdmin(context.Background(), "admin@example.com", "admin-password"))
	admin := a.login("admin@example.com", "admin-password")
	code, env = a.do(http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "newdelegate@example.com")
}
