package services

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/shared/go-testhelpers"
	"github.com/poofware/todo-service/shared/go-utils"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.PasswordHashCost = bcrypt.MinCost
	utils.Logger.SetOutput(io.Discard)
	cleanupRetryDelay = time.Millisecond
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		OrganizationName:         config.OrganizationName,
		AppName:                  config.DefaultAppName,
		JWTSecret:                []byte("test-secret"),
		AccessTokenExpiry:        time.Minute,
		RefreshTokenExpiry:       time.Hour,
		RequireVerifiedSession:   true,
		VerificationCodeLength:   config.VerificationCodeLength,
		VerificationCodeExpiry:   config.DefaultVerificationCodeExpiry,
		MaxLoginAttempts:         3,
		AttemptWindow:            config.AttemptWindow,
		SMSLimitPerIPPerHour:     config.DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour: config.DefaultSMSLimitPerNumberPerHour,
		GlobalSMSLimitPerHour:    config.DefaultGlobalSMSLimitPerHour,
		RateLimitWindow:          config.DefaultRateLimitWindow,
		NotifyChannel:            config.NotifyChannelLog,
	}
}

// recordingSender captures every delivered message.
type recordingSender struct {
	mu   sync.Mutex
	msgs []VerificationMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg VerificationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *recordingSender) Messages() []VerificationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]VerificationMessage(nil), s.msgs...)
}

type testEnv struct {
	cfg        *config.Config
	accounts   *testhelpers.FakeAccountRepository
	codes      *testhelpers.FakeSMSVerificationRepository
	tokenRepo  *testhelpers.FakeTokenRepository
	rateRepo   *testhelpers.FakeRateLimitRepository
	sender     *recordingSender
	notifier   NotificationService
	identities IdentityStore
	ledger     VerificationLedger
	tokens     TokenService
	auth       AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	env := &testEnv{
		cfg:       cfg,
		accounts:  testhelpers.NewFakeAccountRepository(),
		codes:     testhelpers.NewFakeSMSVerificationRepository(),
		tokenRepo: testhelpers.NewFakeTokenRepository(),
		rateRepo:  testhelpers.NewFakeRateLimitRepository(),
		sender:    &recordingSender{},
	}
	env.notifier = NewNotificationService(env.sender, cfg)
	env.identities = NewIdentityStore(env.accounts)
	env.ledger = NewVerificationLedger(env.codes, cfg)
	env.tokens = NewJWTService(cfg, env.tokenRepo, env.identities)
	env.auth = NewAuthService(
		env.identities,
		env.ledger,
		NewCredentialManager(env.identities, NewDefaultPasswordPolicy()),
		env.tokens,
		NewPhoneValidator(),
		NewRateLimiterService(env.rateRepo, cfg),
		env.notifier,
	)
	t.Cleanup(env.notifier.Wait)
	return env
}

// lastCode waits for in-flight deliveries and returns the newest code sent.
func (e *testEnv) lastCode(t *testing.T) string {
	t.Helper()
	e.notifier.Wait()
	msgs := e.sender.Messages()
	if len(msgs) == 0 {
		t.Fatal("no verification code was delivered")
	}
	return msgs[len(msgs)-1].Code
}
