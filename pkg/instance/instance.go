// Package instance names the running replica for logs and lock tokens.
package instance

import (
	"os"
	"strings"
	"sync"
)

const fallbackID = "worker-0"

var hostname = sync.OnceValue(func() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
})

// GetID prefers STOREFRONT_INSTANCE_ID, then WORKER_ID, then the hostname
// (the pod name on Kubernetes and Cloud Run).
func GetID() string {
	for _, key := range []string{"STOREFRONT_INSTANCE_ID", "WORKER_ID"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if name := hostname(); name != "" {
		return name
	}
	return fallbackID
}
