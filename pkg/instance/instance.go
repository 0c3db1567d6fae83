package instance

import "os"

// GetID returns the identifier for this process, preferring the WORKER_ID
// environment variable and falling back to the hostname.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
