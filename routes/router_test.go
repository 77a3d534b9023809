package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/controllers"
	"github.com/cppla/fitquest/jobs"
	"github.com/cppla/fitquest/services"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

func newTestRouter(t *testing.T) (http.Handler, *utils.TokenIssuer, *services.AccountService) {
	t.Helper()
	cfg := config.AppConfig{
		GinMode:            "test",
		RateLimitPerMinute: 600,
		AdminUsernames:     []string{"root"},
		MetricsUser:        "prom",
		MetricsPass:        "pw",
	}
	repo := store.NewMemory()
	reg := prometheus.NewRegistry()
	metrics := services.NewMetrics(reg)
	tokens := utils.NewTokenIssuer("router-secret")
	planner := services.NewPlanner(nil, services.DefaultRand(), time.UTC, nil, metrics)
	accounts := services.NewAccountService(repo, planner, tokens, time.Hour, 24*time.Hour, nil)
	accounts.ReserveUsernames(cfg.AdminUsernames...)
	_, err := accounts.ProvisionReserved(context.Background(), "root-pass", "localhost")
	require.NoError(t, err)
	scheduler := jobs.NewScheduler(services.NewRollupService(repo, planner, nil, metrics), jobs.Schedule{Location: time.UTC}, nil, nil)

	r := SetupRouter(cfg, Dependencies{
		Auth:       controllers.NewAuthController(accounts, utils.NewRegisterGuard(cfg), utils.NewCaptcha(utils.NewCaptchaStore(time.Minute)), false),
		User:       controllers.NewUserController(accounts, services.NewProfileService(repo, time.UTC)),
		Insurance:  controllers.NewInsuranceController(services.NewPlanService(repo, nil, nil, 0, nil, metrics), services.NewRewardsService(repo), services.NewPolicyService(repo)),
		Admin:      controllers.NewAdminController(scheduler),
		Tokens:     tokens,
		Gatherer:   reg,
		Registerer: reg,
	})
	return r, tokens, accounts
}

func tokenFor(t *testing.T, accounts *services.AccountService, username string) string {
	t.Helper()
	res, err := accounts.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	return res.Token
}

func adminToken(t *testing.T, accounts *services.AccountService) string {
	t.Helper()
	res, err := accounts.Login(context.Background(), services.LoginInput{Username: "root", Password: "root-pass"})
	require.NoError(t, err)
	return res.Token
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"status":"ok"}}`, w.Body.String())
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40400`)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r, _, _ := newTestRouter(t)
	for _, path := range []string{"/api/user/profile", "/api/user/progress", "/api/insurance/plans", "/api/insurance/policies"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestMetricsRequireBasicAuth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "pw")
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{`)
}

func TestAdminRollupIsAdminOnly(t *testing.T) {
	r, _, accounts := newTestRouter(t)
	userToken := tokenFor(t, accounts, "alice")
	rootToken := adminToken(t, accounts)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/rollup", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/rollup", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+rootToken)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data services.RollupReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 2, env.Data.Users)
	assert.Equal(t, 2, env.Data.Succeeded)
}

func TestAdminNamesCannotBeClaimed(t *testing.T) {
	r, _, accounts := newTestRouter(t)
	userToken := tokenFor(t, accounts, "alice")

	req := httptest.NewRequest(http.MethodPut, "/api/user/profile", strings.NewReader(`{"username":"root"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username is reserved")

	req = httptest.NewRequest(http.MethodPost, "/api/register",
		strings.NewReader(`{"username":"Root","email":"squat@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the old token still names alice, so admin routes stay closed
	req = httptest.NewRequest(http.MethodPost, "/api/admin/rollup", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
}
