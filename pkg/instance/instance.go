// Package instance names the running process in worker logs.
package instance

import (
	"os"
	"strings"
)

const fallbackID = "worker-0"

// GetID returns WORKER_ID, then the host name, then a fixed fallback.
func GetID() string {
	return resolve(os.Getenv, os.Hostname)
}

func resolve(getenv func(string) string, hostname func() (string, error)) string {
	if id := strings.TrimSpace(getenv("WORKER_ID")); id != "" {
		return id
	}
	if host, err := hostname(); err == nil && strings.TrimSpace(host) != "" {
		return host
	}
	return fallbackID
}
