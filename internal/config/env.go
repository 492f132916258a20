package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envValue parses the trimmed value of key. Unset, blank and unparseable
// values all yield fallback; Load range-checks what comes back.
func envValue[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func GetEnv(key, fallback string) string {
	return envValue(key, fallback, func(s string) (string, error) { return s, nil })
}

func GetEnvInt(key string, fallback int) int {
	return envValue(key, fallback, strconv.Atoi)
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	return envValue(key, fallback, time.ParseDuration)
}

func GetEnvBool(key string, fallback bool) bool {
	return envValue(key, fallback, strconv.ParseBool)
}

// SplitCSV returns the non-blank, trimmed entries of a comma list.
func SplitCSV(raw string) []string {
	out := []string{}
	for entry := range strings.SplitSeq(raw, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// DefaultPostgresDSN assembles a keyword/value DSN from the DB_* variables,
// used when DB_DSN is not set.
func DefaultPostgresDSN() string {
	parts := []struct{ key, env, def string }{
		{"host", "DB_HOST", "localhost"},
		{"port", "DB_PORT", "5432"},
		{"user", "DB_USER", "postgres"},
		{"password", "DB_PASSWORD", "postgres"},
		{"dbname", "DB_NAME", "tinylink"},
		{"sslmode", "DB_SSL_MODE", "disable"},
	}
	kv := make([]string, 0, len(parts))
	for _, p := range parts {
		kv = append(kv, p.key+"="+GetEnv(p.env, p.def))
	}
	return strings.Join(kv, " ")
}

// DefaultWorkerID identifies a worker process as host-pid.
func DefaultWorkerID(fallbackHost string) string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = fallbackHost
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
