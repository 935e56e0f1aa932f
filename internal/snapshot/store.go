// Package snapshot persists captured schemas to object storage so a
// point-in-time structural record of a tracked database can be shared or
// audited. Persisting is optional and config-gated; nothing in the core
// inspection path depends on it.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/mkoline/schemascope/internal/schema"
)

// Snapshot is one captured schema document: the structured schema plus its
// rendered text form. Connection credentials are never part of a snapshot.
type Snapshot struct {
	Project  string       `json:"project"`
	TakenAt  time.Time    `json:"taken_at"`
	Rendered string       `json:"rendered"`
	Schema   *schema.Info `json:"schema"`
}

// Store is the interface snapshot backends implement.
type Store interface {
	// Ping verifies the backend is reachable and the target bucket exists.
	Ping(ctx context.Context) error

	// Save persists the snapshot and returns the object key it was written
	// under.
	Save(ctx context.Context, snap *Snapshot) (string, error)

	// Close releases any held resources.
	Close() error
}

// ObjectKey builds the storage key for a snapshot:
// <project>/<database>-<unix>.json.
func ObjectKey(project, database string, takenAt time.Time) string {
	return fmt.Sprintf("%s/%s-%d.json", project, database, takenAt.Unix())
}

// Config holds the settings for an object-storage snapshot backend.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
}
