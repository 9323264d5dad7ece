package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/poofware/todo-service/shared/go-utils"
)

// Config holds all application configuration, including secrets, flags, etc.
type Config struct {
	OrganizationName         string
	AppName                  string
	AppPort                  string
	AppUrl                   string
	DBUrl                    string
	RunMigrations            bool
	JWTSecret                []byte
	AccessTokenExpiry        time.Duration
	RefreshTokenExpiry       time.Duration
	RequireVerifiedSession   bool
	VerificationCodeLength   int
	VerificationCodeExpiry   time.Duration
	VerificationRetention    time.Duration
	MaxLoginAttempts         int
	AttemptWindow            time.Duration
	SMSLimitPerIPPerHour     int
	SMSLimitPerNumberPerHour int
	GlobalSMSLimitPerHour    int
	RateLimitWindow          time.Duration
	DefaultPageSize          int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitMQURL   string

	NotifyChannel     string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromPhone   string
	SendGridAPIKey    string
	SendGridFromEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPFrom          string

	// Static flags fetched once from LaunchDarkly
	LDFlag_ShortTokenTTL           bool
	LDFlag_AcceptFakePhones        bool
	LDFlag_ValidatePhoneWithTwilio bool
	LDFlag_CORSHighSecurity        bool
}

// Constants for time-based configuration defaults.
const (
	OrganizationName                = utils.OrganizationName
	DefaultAppName                  = "todo-service"
	DefaultAppPort                  = "8080"
	MaxLoginAttempts                = 10
	AttemptWindow                   = 5 * time.Minute
	VerificationCodeLength          = 5
	DefaultVerificationCodeExpiry   = 5 * time.Minute
	TestShortVerificationCodeExpiry = 3 * time.Second
	DefaultTokenExpiry              = 10 * time.Minute
	DefaultRefreshTokenExpiry       = 7 * 24 * time.Hour
	TestShortTokenExpiry            = 2 * time.Second
	TestShortRefreshTokenExpiry     = 8 * time.Second
	LDConnectionTimeout             = 5 * time.Second
	DefaultSMSLimitPerIPPerHour     = 20
	DefaultSMSLimitPerNumberPerHour = 5
	DefaultGlobalSMSLimitPerHour    = 1000
	DefaultRateLimitWindow          = 1 * time.Hour
	TestShortGlobalSMSLimit         = 50
)

// Notification channels understood by NOTIFY_CHANNEL.
const (
	NotifyChannelLog   = "log"
	NotifyChannelSMS   = "sms"
	NotifyChannelEmail = "email"
	NotifyChannelSMTP  = "smtp"
	NotifyChannelQueue = "queue"
)

// Global compile-time overrides.
var (
	AppName             string
	LDServerContextKind = "service"
)

// LoadConfig reads .env (if present) and the process environment, applies
// LaunchDarkly flags when LD_SDK_KEY is set, and returns a *Config. Missing
// required values are fatal.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.Logger.WithError(err).Warn("Failed to load .env file")
	}

	cfg, err := FromEnv()
	if err != nil {
		utils.Logger.WithError(err).Fatal("Invalid configuration")
	}
	utils.Logger.Info("Loading config for app: ", cfg.AppName)

	if key := os.Getenv("LD_SDK_KEY"); key != "" {
		if err := cfg.applyLaunchDarklyFlags(key); err != nil {
			utils.Logger.WithError(err).Fatal("Failed to fetch LaunchDarkly flags")
		}
	} else {
		utils.Logger.Debug("LD_SDK_KEY not set; using default flag values")
	}

	utils.Logger.Debugf("App can be accessed at: %s", cfg.AppUrl)
	return cfg
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	appName := AppName
	if appName == "" {
		appName = envString("APP_NAME", DefaultAppName)
	}

	dbUrl := os.Getenv("DATABASE_URL")
	if dbUrl == "" {
		return nil, errors.New("DATABASE_URL env var is missing")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET env var is missing")
	}

	p := &envParser{}
	cfg := &Config{
		OrganizationName:         OrganizationName,
		AppName:                  appName,
		AppPort:                  envString("APP_PORT", DefaultAppPort),
		AppUrl:                   envString("APP_URL", "http://localhost:"+envString("APP_PORT", DefaultAppPort)),
		DBUrl:                    dbUrl,
		RunMigrations:            p.boolean("RUN_MIGRATIONS", true),
		JWTSecret:                []byte(jwtSecret),
		AccessTokenExpiry:        p.duration("ACCESS_TOKEN_TTL", DefaultTokenExpiry),
		RefreshTokenExpiry:       p.duration("REFRESH_TOKEN_TTL", DefaultRefreshTokenExpiry),
		RequireVerifiedSession:   p.boolean("REQUIRE_VERIFIED_SESSION", true),
		VerificationCodeLength:   VerificationCodeLength,
		VerificationCodeExpiry:   p.duration("VERIFICATION_CODE_TTL", DefaultVerificationCodeExpiry),
		VerificationRetention:    p.duration("VERIFICATION_RETENTION", 0),
		MaxLoginAttempts:         MaxLoginAttempts,
		AttemptWindow:            AttemptWindow,
		SMSLimitPerIPPerHour:     DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour: DefaultSMSLimitPerNumberPerHour,
		GlobalSMSLimitPerHour:    DefaultGlobalSMSLimitPerHour,
		RateLimitWindow:          DefaultRateLimitWindow,
		DefaultPageSize:          utils.DefaultPageSize,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       p.integer("REDIS_DB", 0),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),

		NotifyChannel:     strings.ToLower(envString("NOTIFY_CHANNEL", NotifyChannelLog)),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromPhone:   os.Getenv("TWILIO_FROM_PHONE"),
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          p.integer("SMTP_PORT", 587),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
	}
	if p.err != nil {
		return nil, p.err
	}

	switch cfg.NotifyChannel {
	case NotifyChannelLog, NotifyChannelSMS, NotifyChannelEmail, NotifyChannelSMTP, NotifyChannelQueue:
	default:
		return nil, fmt.Errorf("unknown NOTIFY_CHANNEL %q", cfg.NotifyChannel)
	}
	if cfg.NotifyChannel == NotifyChannelQueue && cfg.RabbitMQURL == "" {
		return nil, errors.New("NOTIFY_CHANNEL=queue requires RABBITMQ_URL")
	}
	return cfg, nil
}

// applyLaunchDarklyFlags fetches the static flags once and closes the client.
func (c *Config) applyLaunchDarklyFlags(sdkKey string) error {
	ldClient, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		return fmt.Errorf("create LaunchDarkly client: %w", err)
	}
	defer ldClient.Close()
	if !ldClient.Initialized() {
		return errors.New("LaunchDarkly client failed to initialize")
	}

	context := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), c.AppName)

	flags := []struct {
		key string
		dst *bool
	}{
		{"short_token_ttl", &c.LDFlag_ShortTokenTTL},
		{"accept_fake_phones", &c.LDFlag_AcceptFakePhones},
		{"validate_phone_with_twilio", &c.LDFlag_ValidatePhoneWithTwilio},
		{"cors_high_security", &c.LDFlag_CORSHighSecurity},
	}
	for _, f := range flags {
		v, err := ldClient.BoolVariation(f.key, context, false)
		if err != nil {
			return fmt.Errorf("retrieve %s flag: %w", f.key, err)
		}
		*f.dst = v
		utils.Logger.Debugf("%s flag: %t", f.key, v)
	}

	c.ApplyShortTTL()
	return nil
}

// ApplyShortTTL switches to the test expiries and global SMS limit when the
// short_token_ttl flag is on.
func (c *Config) ApplyShortTTL() {
	if !c.LDFlag_ShortTokenTTL {
		return
	}
	c.AccessTokenExpiry = TestShortTokenExpiry
	c.RefreshTokenExpiry = TestShortRefreshTokenExpiry
	c.VerificationCodeExpiry = TestShortVerificationCodeExpiry
	c.GlobalSMSLimitPerHour = TestShortGlobalSMSLimit
}

// Close cleans up any resources used by Config.
func (c *Config) Close() {
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envParser records the first malformed value so FromEnv can report it.
type envParser struct {
	err error
}

func (p *envParser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return d
}

func (p *envParser) integer(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return n
}

func (p *envParser) boolean(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return b
}
