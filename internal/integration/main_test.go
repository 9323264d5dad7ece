//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/poofware/todo-service/internal/app"
	"github.com/poofware/todo-service/internal/app/migrations"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/internal/controllers"
	auth_repositories "github.com/poofware/todo-service/internal/repositories"
	"github.com/poofware/todo-service/internal/routes"
	"github.com/poofware/todo-service/internal/services"
	"github.com/poofware/todo-service/shared/go-testhelpers"
	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/stretchr/testify/require"
)

var (
	h   *testhelpers.TestHelper
	cfg *config.Config
)

func TestMain(m *testing.M) {
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET"} {
		if os.Getenv(key) == "" {
			log.Fatalf("%s env var is missing", key)
		}
	}

	var err error
	cfg, err = config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Counters live in the shared database and survive between runs.
	cfg.GlobalSMSLimitPerHour = 1_000_000
	cfg.NotifyChannel = config.NotifyChannelLog

	t := &testing.T{}
	h = testhelpers.NewTestHelper(t)
	if err := app.ApplyMigrations(context.Background(), h.DB, migrations.FS); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	srv := httptest.NewServer(newRouter(h.DB))
	if h.BaseURL == "" {
		h.BaseURL = srv.URL
	}

	code := m.Run()
	srv.Close()
	h.Close()
	os.Exit(code)
}

// newRouter wires the production graph over pool, the same way cmd does
// without Redis.
func newRouter(pool *pgxpool.Pool) http.Handler {
	identities := services.NewIdentityStore(h.AccountRepo)
	tokenRepo := auth_repositories.NewTokenRepository(pool)
	authService := services.NewAuthService(
		identities,
		services.NewVerificationLedger(h.SMSRepo, cfg),
		services.NewCredentialManager(identities, services.NewDefaultPasswordPolicy()),
		services.NewJWTService(cfg, tokenRepo, identities),
		services.NewPhoneValidator(),
		services.NewRateLimiterService(auth_repositories.NewRateLimitRepository(pool), cfg),
		services.NewNotificationService(services.NewLogSender(), cfg),
	)
	return routes.NewRouter(cfg, routes.Controllers{
		Auth:   controllers.NewAuthController(authService),
		Tasks:  controllers.NewTaskController(services.NewTaskService(h.TaskRepo)),
		Health: controllers.NewHealthController(pool),
	})
}

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// randomPhone returns an unused-looking Uzbek mobile number.
func randomPhone() string {
	return fmt.Sprintf("+99890%07d", rand.Intn(10_000_000))
}

// randomIP keeps per-IP counters from accumulating across runs.
func randomIP() string {
	return fmt.Sprintf("10.%d.%d.%d", rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
}

type client struct {
	ip string
}

func newClient() *client {
	return &client{ip: randomIP()}
}

func (c *client) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.BaseURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", c.ip)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (c *client) expect(t *testing.T, status int, method, path, token string, body, dst any) {
	t.Helper()
	resp, raw := c.do(t, method, path, token, body)
	require.Equal(t, status, resp.StatusCode, "%s %s: %s", method, path, raw)
	if dst != nil {
		require.NoError(t, json.Unmarshal(raw, dst), string(raw))
	}
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return body.Code
}

// latestCode reads the newest code straight from the ledger table.
func latestCode(t *testing.T, accountID uuid.UUID) string {
	t.Helper()
	rec, err := h.SMSRepo.GetLatest(context.Background(), accountID)
	require.NoError(t, err)
	require.NotNil(t, rec, "no code issued")
	return rec.Code
}

type session struct {
	ID      uuid.UUID
	Phone   string
	Access  string
	Refresh string
}

func (c *client) verifiedSession(t *testing.T) session {
	t.Helper()
	phone := randomPhone()
	var signUp struct {
		ID     uuid.UUID `json:"id"`
		Access string    `json:"access"`
	}
	c.expect(t, http.StatusOK, http.MethodPost, "/api/v1/users/sign-up/", "", map[string]string{"phone": phone}, &signUp)

	var verified struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	c.expect(t, http.StatusOK, http.MethodPost, "/api/v1/users/verify-code/", signUp.Access,
		map[string]string{"code": latestCode(t, signUp.ID)}, &verified)
	return session{ID: signUp.ID, Phone: phone, Access: verified.Access, Refresh: verified.Refresh}
}

func (c *client) registeredSession(t *testing.T, username, password string) session {
	t.Helper()
	s := c.verifiedSession(t)
	c.expect(t, http.StatusOK, http.MethodPut, "/api/v1/users/register/", s.Access, map[string]any{
		"username":         username,
		"password":         password,
		"confirm_password": password,
	}, nil)
	return s
}

func uniqueUsername(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
