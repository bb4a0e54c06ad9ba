// Package config loads environment configuration and exposes the tuning
// knobs of the verification pipeline. Thresholds live here, not in code,
// so they can be adjusted without a redeploy.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetFloatEnv returns a float environment variable or a default value.
func GetFloatEnv(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// QualityConfig holds the document quality gate thresholds.
type QualityConfig struct {
	MinWidth      int
	MinHeight     int
	MinSharpness  float64 // minimum variance of the Laplacian
	MaxNoise      float64 // maximum mean deviation from the denoised image
	MinBrightness float64
	MaxBrightness float64
}

// LoadQualityConfig reads the quality gate thresholds from the environment.
func LoadQualityConfig() QualityConfig {
	return QualityConfig{
		MinWidth:      GetIntEnv("QUALITY_MIN_WIDTH", 800),
		MinHeight:     GetIntEnv("QUALITY_MIN_HEIGHT", 600),
		MinSharpness:  GetFloatEnv("QUALITY_MIN_SHARPNESS", 100),
		MaxNoise:      GetFloatEnv("QUALITY_MAX_NOISE", 20),
		MinBrightness: GetFloatEnv("QUALITY_MIN_BRIGHTNESS", 50),
		MaxBrightness: GetFloatEnv("QUALITY_MAX_BRIGHTNESS", 220),
	}
}

// RiskConfig holds the risk scoring weights and level thresholds.
// The weights sum to 1.0 with the defaults below; document authenticity
// and AML screening carry the most weight.
type RiskConfig struct {
	WeightDocuments float64
	WeightContacts  float64
	WeightAML       float64
	WeightIncome    float64
	WeightBehavior  float64
	LowThreshold    float64 // score >= LowThreshold    -> low risk
	MediumThreshold float64 // score >= MediumThreshold -> medium risk
	WatchlistPath   string
}

// LoadRiskConfig reads the scoring configuration from the environment.
func LoadRiskConfig() RiskConfig {
	return RiskConfig{
		WeightDocuments: GetFloatEnv("RISK_WEIGHT_DOCUMENTS", 0.30),
		WeightContacts:  GetFloatEnv("RISK_WEIGHT_CONTACTS", 0.20),
		WeightAML:       GetFloatEnv("RISK_WEIGHT_AML", 0.20),
		WeightIncome:    GetFloatEnv("RISK_WEIGHT_INCOME", 0.15),
		WeightBehavior:  GetFloatEnv("RISK_WEIGHT_BEHAVIOR", 0.15),
		LowThreshold:    GetFloatEnv("RISK_LOW_THRESHOLD", 0.8),
		MediumThreshold: GetFloatEnv("RISK_MEDIUM_THRESHOLD", 0.4),
		WatchlistPath:   GetEnv("RISK_WATCHLIST_PATH", "data/pep_list.csv"),
	}
}

// SignatureConfig holds the e-signature gate configuration.
type SignatureConfig struct {
	// VolumeThreshold is the cumulative transaction volume above which
	// full activation requires a signed e-signature request.
	VolumeThreshold decimal.Decimal
}

// LoadSignatureConfig reads the signature gate configuration.
func LoadSignatureConfig() SignatureConfig {
	threshold := GetEnv("SIGNATURE_VOLUME_THRESHOLD", "10000")
	d, err := decimal.NewFromString(threshold)
	if err != nil {
		log.Printf("invalid SIGNATURE_VOLUME_THRESHOLD %q, using 10000", threshold)
		d = decimal.NewFromInt(10000)
	}
	return SignatureConfig{VolumeThreshold: d}
}

// ReminderConfig holds the reminder scheduler configuration.
type ReminderConfig struct {
	Interval     time.Duration // how often the scheduler polls
	Cooldown     time.Duration // minimum gap between reminders to one user
	MaxReminders int           // reminders per notification before giving up
}

// LoadReminderConfig reads the scheduler configuration.
func LoadReminderConfig() ReminderConfig {
	return ReminderConfig{
		Interval:     GetDurationEnv("REMINDER_INTERVAL", time.Hour),
		Cooldown:     GetDurationEnv("REMINDER_COOLDOWN", 24*time.Hour),
		MaxReminders: GetIntEnv("REMINDER_MAX_COUNT", 3),
	}
}

// MailConfig holds the SMTP settings used for reminder and status emails.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Sender      string
	FrontendURL string
}

// LoadMailConfig reads the mail configuration from the environment.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:        GetEnv("MAIL_HOST", "localhost"),
		Port:        GetIntEnv("MAIL_PORT", 587),
		Username:    GetEnv("MAIL_USERNAME", ""),
		Password:    GetEnv("MAIL_PASSWORD", ""),
		Sender:      GetEnv("MAIL_SENDER", "noreply@sahelbank.dz"),
		FrontendURL: GetEnv("FRONTEND_URL", "http://localhost:3001"),
	}
}
