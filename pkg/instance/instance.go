// Package instance names the running process for lock owners and log lines.
package instance

import (
	"os"
	"sync"

	"github.com/angelmondragon/sealcard-backend/pkg/env"
)

// ID is resolved once per process: SEALCARD_WORKER_ID, then the hostname
// (the pod or Cloud Run instance name), then a fixed fallback.
var ID = sync.OnceValue(resolve)

func resolve() string {
	if id := env.Get("SEALCARD_WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
