package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port           string `mapstructure:"PORT"`
	DBConn         string `mapstructure:"DB_CONN"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	EncryptionKey  string `mapstructure:"ENCRYPTION_KEY"`
	HMACSecret     string `mapstructure:"HMAC_SECRET"`
	SessionTTLHrs  int    `mapstructure:"SESSION_TTL_HOURS"`
	APITimeoutSecs int    `mapstructure:"API_TIMEOUT_SECONDS"`

	SMTPHost        string `mapstructure:"SMTP_HOST"`
	SMTPPort        string `mapstructure:"SMTP_PORT"`
	SMTPUsername    string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword    string `mapstructure:"SMTP_PASSWORD"`
	SenderEmail     string `mapstructure:"SENDER_EMAIL"`
	ReportRecipient string `mapstructure:"REPORT_RECIPIENT"`
	ReportSchedule  string `mapstructure:"REPORT_SCHEDULE"`

	MTNAPIURL        string `mapstructure:"MTN_API_URL"`
	AirtelTigoAPIURL string `mapstructure:"AIRTELTIGO_API_URL"`
	VodafoneAPIURL   string `mapstructure:"VODAFONE_API_URL"`
}

// LoadConfig reads configuration from environment variables and an optional
// .env file in the given directory.
func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("SESSION_TTL_HOURS", 24)
	viper.SetDefault("API_TIMEOUT_SECONDS", 30)
	viper.SetDefault("REPORT_SCHEDULE", "0 7 * * *")
	viper.SetDefault("SENDER_EMAIL", "reports@mopay.gh")

	for _, key := range []string{
		"PORT", "DB_CONN", "LOG_LEVEL", "JWT_SECRET", "ENCRYPTION_KEY",
		"HMAC_SECRET", "SESSION_TTL_HOURS", "API_TIMEOUT_SECONDS",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD",
		"SENDER_EMAIL", "REPORT_RECIPIENT", "REPORT_SCHEDULE",
		"MTN_API_URL", "AIRTELTIGO_API_URL", "VODAFONE_API_URL",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env file is fine; everything can come from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if _, err := cfg.EncryptionKeyBytes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EncryptionKeyBytes decodes the hex-encoded data encryption key.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24, or 32 bytes, got %d", len(key))
	}
	return key, nil
}
