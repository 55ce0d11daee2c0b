package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/kgchat/pkg/logger"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file from the working directory if one exists.
// It is called once at process start; later changes to the file are not seen.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

func GetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return ""
	}
	return value
}

func GetEnvString(key string, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}

	return value
}

func GetEnvNumeric(key string, defaultValue int) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return float64(defaultValue)
	}
	returnValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return float64(defaultValue)
	}

	return returnValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	if value == "true" || value == "false" {
		return value == "true"
	}

	return defaultValue
}

// GetEnvDuration parses values like "30s" or "2m". Invalid values fall back
// to defaultValue.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// MissingEnvError lists every required variable that was unset or empty.
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Keys, ", "))
}

// RequireEnv checks that all keys are set to a non-empty value.
func RequireEnv(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(GetEnv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingEnvError{Keys: missing}
	}
	return nil
}
