// Package env reads the few variables needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Get treats a blank value as unset.
func Get(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if v = strings.TrimSpace(v); !ok || v == "" {
		return fallback
	}
	return v
}
