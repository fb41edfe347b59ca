package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the proctor service's environment-driven configuration.
type Config struct {
	Port string

	// Optional Redis; the service runs fully in-memory without it.
	RedisAddr     string
	RedisPassword string

	// Hosted object-detection endpoint.
	DetectURL     string
	DetectAPIKey  string
	DetectModelID string
	DetectTimeout time.Duration

	// Local face-presence cascade.
	FaceCascade string

	// Alert qualification thresholds.
	ObjectConfidenceMin float64
	ObjectAreaMin       float64

	// Tab-switch disqualification threshold.
	TabSwitchLimit int

	SessionTTL time.Duration

	// ICE/TURN credential vending; endpoint is disabled without both.
	TwilioAccountSID string
	TwilioAuthToken  string

	RoomCleanupInterval   time.Duration
	RoomInactiveThreshold time.Duration
}

// LoadConfig reads the environment, falling back to development defaults.
func LoadConfig() (*Config, error) {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		DetectURL:             getEnv("DETECT_URL", "https://detect.roboflow.com"),
		DetectAPIKey:          getEnv("DETECT_API_KEY", ""),
		DetectModelID:         getEnv("DETECT_MODEL_ID", "interview-dxisb/3"),
		DetectTimeout:         time.Duration(getEnvInt("DETECT_TIMEOUT_SEC", 5)) * time.Second,
		FaceCascade:           getEnv("FACE_CASCADE", "cascade/facefinder"),
		ObjectConfidenceMin:   getEnvFloat("OBJECT_CONFIDENCE_MIN", 0.70),
		ObjectAreaMin:         getEnvFloat("OBJECT_AREA_MIN", 2000),
		TabSwitchLimit:        getEnvInt("TAB_SWITCH_LIMIT", 3),
		SessionTTL:            time.Duration(getEnvInt("SESSION_TTL_MIN", 12*60)) * time.Minute,
		TwilioAccountSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:       getEnv("TWILIO_AUTH_TOKEN", ""),
		RoomCleanupInterval:   time.Duration(getEnvInt("ROOM_CLEANUP_INTERVAL_MIN", 5)) * time.Minute,
		RoomInactiveThreshold: time.Duration(getEnvInt("ROOM_INACTIVE_THRESHOLD_MIN", 30)) * time.Minute,
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
