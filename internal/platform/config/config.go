// Package config loads the environment-sourced recognised options (§6.3):
// database_url, cors_origins, port, debug. Runner timing constants are
// compile-time (see internal/runner) and are not part of this struct.
package config

import (
	"strings"

	"github.com/contentforge/taskengine/internal/platform/logger"
)

type Config struct {
	DatabaseURL string
	CORSOrigins []string
	Port        int
	Debug       bool
}

func Load(log *logger.Logger) Config {
	origins := getEnv("CORS_ORIGINS", "http://localhost:3000", log)
	return Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/taskengine?sslmode=disable", log),
		CORSOrigins: splitAndTrim(origins),
		Port:        getEnvAsInt("PORT", 8080, log),
		Debug:       getEnvAsBool("DEBUG", false, log),
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
