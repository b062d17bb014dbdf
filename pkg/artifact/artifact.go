package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Artifact is an immutable record of raw model output. It is attached to
// analysis results so callers can audit what the model actually said
// before any parsing or fallback synthesis happened.
type Artifact struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Provider  string            `json:"provider"`
	Model     string            `json:"model"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Hash      string            `json:"hash"`
}

// New creates an artifact with a computed content hash.
func New(content, provider, model string) *Artifact {
	a := &Artifact{
		ID:        uuid.NewString(),
		Content:   content,
		Provider:  provider,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
	a.Hash = a.computeHash()
	return a
}

// WithMetadata returns a copy of the artifact with an extra metadata entry.
// The hash covers content only, so metadata edits do not invalidate it.
func (a *Artifact) WithMetadata(key, value string) *Artifact {
	copied := *a
	copied.Metadata = make(map[string]string, len(a.Metadata)+1)
	for k, v := range a.Metadata {
		copied.Metadata[k] = v
	}
	copied.Metadata[key] = value
	return &copied
}

func (a *Artifact) computeHash() string {
	h := sha256.New()
	h.Write([]byte(a.Content))
	h.Write([]byte(a.Provider))
	h.Write([]byte(a.Model))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
