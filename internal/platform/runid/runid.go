// Package runid generates correlation ids attached to every log line of a run.
package runid

import "github.com/google/uuid"

// New returns a short random id for one pipeline run.
func New() string {
	return uuid.NewString()[:8]
}
