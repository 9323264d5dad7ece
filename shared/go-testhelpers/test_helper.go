package testhelpers

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/poofware/todo-service/shared/go-repositories"
	"github.com/stretchr/testify/require"
)

// TestHelper encapsulates the components integration tests share: a Postgres
// pool, the signing secret and the shared repositories.
type TestHelper struct {
	T         *testing.T
	Ctx       context.Context
	BaseURL   string
	DB        *pgxpool.Pool
	JWTSecret []byte

	AccountRepo repositories.AccountRepository
	SMSRepo     repositories.SMSVerificationRepository
	TaskRepo    repositories.TaskRepository
}

// NewTestHelper connects to DATABASE_URL and builds the repositories.
// BaseURL comes from APP_URL_FROM_ANYWHERE and may be overwritten by tests
// that serve the API in-process.
func NewTestHelper(t *testing.T) *TestHelper {
	dbURL := os.Getenv("DATABASE_URL")
	require.NotEmpty(t, dbURL, "DATABASE_URL env var is missing")
	secret := os.Getenv("JWT_SECRET")
	require.NotEmpty(t, secret, "JWT_SECRET env var is missing")

	ctx := context.Background()
	pool, err := pgxpool.Connect(ctx, dbURL)
	require.NoError(t, err)

	return &TestHelper{
		T:           t,
		Ctx:         ctx,
		BaseURL:     os.Getenv("APP_URL_FROM_ANYWHERE"),
		DB:          pool,
		JWTSecret:   []byte(secret),
		AccountRepo: repositories.NewAccountRepository(pool),
		SMSRepo:     repositories.NewSMSVerificationRepository(pool),
		TaskRepo:    repositories.NewTaskRepository(pool),
	}
}

// Close releases the pool.
func (h *TestHelper) Close() {
	h.DB.Close()
}
