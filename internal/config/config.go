package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cbclab/cbclab/internal/domain/cbc"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	AuthMode       string        `mapstructure:"AUTH_MODE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	MaxUploadSize  string        `mapstructure:"MAX_UPLOAD_SIZE"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	TLSEnabled     bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string        `mapstructure:"TLS_KEY_FILE"`
	ExtractTimeout time.Duration `mapstructure:"EXTRACT_TIMEOUT"`

	TesseractPath string `mapstructure:"TESSERACT_PATH"`
	TesseractLang string `mapstructure:"TESSERACT_LANG"`
	OCRWorkers    int    `mapstructure:"OCR_WORKERS"`
	OCRMinTextLen int    `mapstructure:"OCR_MIN_TEXT_LEN"`

	HGBGLThreshold            float64 `mapstructure:"HGB_GL_THRESHOLD"`
	HCTFractionMin            float64 `mapstructure:"HCT_FRACTION_MIN"`
	HCTFractionMax            float64 `mapstructure:"HCT_FRACTION_MAX"`
	AbsCountThousandThreshold float64 `mapstructure:"ABS_COUNT_THOUSAND_THRESHOLD"`
	DiffRescaleTolerance      float64 `mapstructure:"DIFF_RESCALE_TOLERANCE"`
	DiffRescaleMin            float64 `mapstructure:"DIFF_RESCALE_MIN"`
	DiffRescaleMax            float64 `mapstructure:"DIFF_RESCALE_MAX"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "AUTH_MODE", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS", "BODY_LIMIT", "MAX_UPLOAD_SIZE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"EXTRACT_TIMEOUT", "TESSERACT_PATH", "TESSERACT_LANG", "OCR_WORKERS", "OCR_MIN_TEXT_LEN",
	"HGB_GL_THRESHOLD", "HCT_FRACTION_MIN", "HCT_FRACTION_MAX", "ABS_COUNT_THOUSAND_THRESHOLD",
	"DIFF_RESCALE_TOLERANCE", "DIFF_RESCALE_MIN", "DIFF_RESCALE_MAX",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	tuning := cbc.DefaultTuning()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_MODE", "") // inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("MAX_UPLOAD_SIZE", "20M")
	v.SetDefault("RATE_LIMIT_RPS", 2)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("EXTRACT_TIMEOUT", "60s")
	v.SetDefault("TESSERACT_PATH", "tesseract")
	v.SetDefault("TESSERACT_LANG", "eng")
	v.SetDefault("OCR_WORKERS", 4)
	v.SetDefault("OCR_MIN_TEXT_LEN", 50)
	v.SetDefault("HGB_GL_THRESHOLD", tuning.HemoglobinGLThreshold)
	v.SetDefault("HCT_FRACTION_MIN", tuning.HematocritFractionMin)
	v.SetDefault("HCT_FRACTION_MAX", tuning.HematocritFractionMax)
	v.SetDefault("ABS_COUNT_THOUSAND_THRESHOLD", tuning.AbsoluteCountThreshold)
	v.SetDefault("DIFF_RESCALE_TOLERANCE", tuning.RescaleTolerance)
	v.SetDefault("DIFF_RESCALE_MIN", tuning.RescaleMin)
	v.SetDefault("DIFF_RESCALE_MAX", tuning.RescaleMax)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HasExtractionLog reports whether extractions are recorded in PostgreSQL.
func (c *Config) HasExtractionLog() bool {
	return c.DatabaseURL != ""
}

// ResolvedAuthMode returns AUTH_MODE when set, otherwise "development" for
// ENV=development and "jwt" everywhere else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// Tuning returns the unit-correction thresholds, keeping the library
// defaults for knobs that are not exposed as settings.
func (c *Config) Tuning() cbc.Tuning {
	t := cbc.DefaultTuning()
	t.HemoglobinGLThreshold = c.HGBGLThreshold
	t.HematocritFractionMin = c.HCTFractionMin
	t.HematocritFractionMax = c.HCTFractionMax
	t.AbsoluteCountThreshold = c.AbsCountThousandThreshold
	t.RescaleTolerance = c.DiffRescaleTolerance
	t.RescaleMin = c.DiffRescaleMin
	t.RescaleMax = c.DiffRescaleMax
	return t
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case "development":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=development is not allowed when ENV=production")
		}
	case "jwt":
		if len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes when AUTH_MODE is \"jwt\" (current ENV=%q)", c.Env)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}

	if c.ExtractTimeout < 0 {
		return fmt.Errorf("EXTRACT_TIMEOUT must not be negative, got %s", c.ExtractTimeout)
	}
	if c.OCRWorkers < 1 {
		return fmt.Errorf("OCR_WORKERS must be at least 1, got %d", c.OCRWorkers)
	}
	if c.OCRMinTextLen < 0 {
		return fmt.Errorf("OCR_MIN_TEXT_LEN must not be negative, got %d", c.OCRMinTextLen)
	}
	if c.HCTFractionMin >= c.HCTFractionMax {
		return fmt.Errorf("HCT_FRACTION_MIN (%g) must be below HCT_FRACTION_MAX (%g)", c.HCTFractionMin, c.HCTFractionMax)
	}
	if c.DiffRescaleMin >= c.DiffRescaleMax {
		return fmt.Errorf("DIFF_RESCALE_MIN (%g) must be below DIFF_RESCALE_MAX (%g)", c.DiffRescaleMin, c.DiffRescaleMax)
	}
	if c.HGBGLThreshold <= 0 || c.AbsCountThousandThreshold <= 0 {
		return fmt.Errorf("HGB_GL_THRESHOLD and ABS_COUNT_THOUSAND_THRESHOLD must be positive")
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
