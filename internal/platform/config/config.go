package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. A missing .env is reported as an error; callers
// usually ignore it and fall back to the system environment or defaults.
// With no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool returns the boolean value of the environment variable named by key.
// Accepts the forms understood by strconv.ParseBool plus "yes"/"no" and "on"/"off".
func GetEnvBool(key string, fallback bool) bool {
	s := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch s {
	case "":
		return fallback
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return fallback
}

// Settings is the resolved process configuration.
type Settings struct {
	Port                 string
	LogLevel             string
	LogFormat            string
	DownloadDir          string
	Encoder              string
	FFmpegPath           string
	StopRenderOnComplete bool
	AutostartSession     bool
}

// FromEnv resolves Settings from the environment, applying defaults.
func FromEnv() Settings {
	return Settings{
		Port:                 GetEnv("PORT", "8080"),
		LogLevel:             GetEnv("LOG_LEVEL", "info"),
		LogFormat:            GetEnv("LOG_FORMAT", "json"),
		DownloadDir:          GetEnv("DOWNLOAD_DIR", "downloads"),
		Encoder:              GetEnv("RECORDER_ENCODER", "mp4"),
		FFmpegPath:           GetEnv("FFMPEG_PATH", "ffmpeg"),
		StopRenderOnComplete: GetEnvBool("STOP_RENDER_ON_COMPLETE", false),
		AutostartSession:     GetEnvBool("AUTOSTART_SESSION", true),
	}
}
