package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Env              string        `mapstructure:"ENV"`
	Port             string        `mapstructure:"PORT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	JWTIssuer        string        `mapstructure:"JWT_ISSUER"`
	JWTTTL           time.Duration `mapstructure:"JWT_TTL"`
	AIURL            string        `mapstructure:"AI_URL"`
	AIAPIKey         string        `mapstructure:"AI_API_KEY"`
	AIModel          string        `mapstructure:"AI_MODEL"`
	AITimeout        time.Duration `mapstructure:"AI_TIMEOUT"`
	CORSAllowed      string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB  int64         `mapstructure:"MAX_UPLOAD_MB"`
	MediaChunkKB     int           `mapstructure:"MEDIA_CHUNK_KB"`
	OTPTTL           time.Duration `mapstructure:"OTP_TTL"`
	NotifyTimeout    time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	KafkaBrokers     string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic       string        `mapstructure:"KAFKA_TOPIC"`
	TwilioAccountSID string        `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string        `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string        `mapstructure:"TWILIO_FROM_NUMBER"`
	TwilioWhatsApp   string        `mapstructure:"TWILIO_WHATSAPP_NUMBER"`
	ResendAPIKey     string        `mapstructure:"RESEND_API_KEY"`
	EmailFrom        string        `mapstructure:"EMAIL_FROM"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "production")
	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_ISSUER", "railmadad")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("AI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_TIMEOUT", "8s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("MEDIA_CHUNK_KB", 255)
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("KAFKA_TOPIC", "complaint-events")
	v.SetDefault("EMAIL_FROM", "Rail Madad <notifications@railmadad.in>")

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "AI_URL", "AI_API_KEY", "KAFKA_BROKERS",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER", "TWILIO_WHATSAPP_NUMBER", "RESEND_API_KEY"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !c.IsDev() && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set outside dev")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.MediaChunkKB <= 0 {
		return errors.New("MEDIA_CHUNK_KB must be positive")
	}
	return nil
}

func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
