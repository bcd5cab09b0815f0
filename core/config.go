package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config holds all environment-driven settings for the API.
	Config struct {
		AppName   string
		Env       string // DEV (default), TEST, QA, PROD
		Debug     bool
		TestMode  bool
		Address   string
		APIPrefix string

		CORSAllowedOrigins []string
		DefaultFromEmail   string
		NotifyEmails       bool
		RollbarToken       string

		Supabase SupabaseConfig
		Mail     MailConfig
		SMS      SMSConfig
	}

	// SupabaseConfig points at the managed platform that owns all
	// persistence, auth and file storage.
	SupabaseConfig struct {
		URL            string
		AnonKey        string
		ServiceRoleKey string
		JWTAudience    string
		JWTCacheTTL    time.Duration

		StudentAvatarBucket string
		UserAvatarBucket    string
	}

	MailConfig struct {
		Host           string
		Port           int
		Username       string
		Password       string
		SendgridAPIKey string
	}

	SMSConfig struct {
		ClientID     string
		ClientSecret string
		SenderID     string
		Endpoint     string
	}
)

// Configured reports whether any outbound mail backend can be used.
func (c MailConfig) Configured() bool {
	return c.SendgridAPIKey != "" || c.Host != ""
}

// Configured requires all three provider credentials.
func (c SMSConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.SenderID != ""
}

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("appName", "Kindred Kids Compass")
	conf.SetDefault("debug", true)
	conf.SetDefault("addr", ":8000")
	conf.SetDefault("apiPrefix", "/api/v1")
	conf.SetDefault("corsAllowedOrigins", []string{"*"})
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("notifyEmails", true)
	conf.SetDefault("supabaseJwtAudience", "authenticated")
	conf.SetDefault("jwtCacheTtl", time.Hour)
	conf.SetDefault("studentAvatarBucket", "student-avatars")
	conf.SetDefault("userAvatarBucket", "user-avatars")
	conf.SetDefault("mailPort", 587)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	}
	conf.AutomaticEnv()

	bindings := map[string]string{
		"addr":                "ADDR",
		"debug":               "DEBUG",
		"corsAllowedOrigins":  "CORS_ALLOWED_ORIGINS",
		"defaultFromEmail":    "DEFAULT_FROM_EMAIL",
		"notifyEmails":        "NOTIFY_EMAILS",
		"rollbarToken":        "ROLLBAR_TOKEN",
		"supabaseUrl":         "SUPABASE_URL",
		"supabaseAnonKey":     "SUPABASE_ANON_KEY",
		"supabaseServiceKey":  "SUPABASE_SERVICE_ROLE_KEY",
		"supabaseJwtAudience": "SUPABASE_JWT_AUDIENCE",
		"jwtCacheTtl":         "JWT_CACHE_TTL",
		"studentAvatarBucket": "STUDENT_AVATAR_BUCKET",
		"userAvatarBucket":    "USER_AVATAR_BUCKET",
		"mailHost":            "MAIL_HOST",
		"mailPort":            "MAIL_PORT",
		"mailUsername":        "MAIL_USERNAME",
		"mailPassword":        "MAIL_PASSWORD",
		"sendgridApiKey":      "SENDGRID_API_KEY",
		"smsClientId":         "SMS_CLIENT_ID",
		"smsClientSecret":     "SMS_CLIENT_SECRET",
		"smsSenderId":         "SMS_SENDER_ID",
		"smsEndpoint":         "SMS_ENDPOINT",
	}
	for key, envVar := range bindings {
		_ = conf.BindEnv(key, envVar)
	}

	return &Config{
		AppName:            conf.GetString("appName"),
		Env:                env,
		Debug:              conf.GetBool("debug"),
		TestMode:           env == "TEST",
		Address:            conf.GetString("addr"),
		APIPrefix:          conf.GetString("apiPrefix"),
		CORSAllowedOrigins: conf.GetStringSlice("corsAllowedOrigins"),
		DefaultFromEmail:   conf.GetString("defaultFromEmail"),
		NotifyEmails:       conf.GetBool("notifyEmails"),
		RollbarToken:       conf.GetString("rollbarToken"),
		Supabase: SupabaseConfig{
			URL:                 strings.TrimRight(conf.GetString("supabaseUrl"), "/"),
			AnonKey:             conf.GetString("supabaseAnonKey"),
			ServiceRoleKey:      conf.GetString("supabaseServiceKey"),
			JWTAudience:         conf.GetString("supabaseJwtAudience"),
			JWTCacheTTL:         conf.GetDuration("jwtCacheTtl"),
			StudentAvatarBucket: conf.GetString("studentAvatarBucket"),
			UserAvatarBucket:    conf.GetString("userAvatarBucket"),
		},
		Mail: MailConfig{
			Host:           conf.GetString("mailHost"),
			Port:           conf.GetInt("mailPort"),
			Username:       conf.GetString("mailUsername"),
			Password:       conf.GetString("mailPassword"),
			SendgridAPIKey: conf.GetString("sendgridApiKey"),
		},
		SMS: SMSConfig{
			ClientID:     conf.GetString("smsClientId"),
			ClientSecret: conf.GetString("smsClientSecret"),
			SenderID:     conf.GetString("smsSenderId"),
			Endpoint:     conf.GetString("smsEndpoint"),
		},
	}
}
