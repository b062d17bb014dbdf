// Package archive persists analysis results in a content-addressed store
// for later review. Results are immutable once written; storing the same
// result twice is a no-op.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zen-systems/mindgate/pkg/schema"
)

// Ref points at a stored result.
type Ref struct {
	SHA256 string `json:"sha256"`
	Path   string `json:"path"`
}

// Store manages the content-addressed result archive.
type Store struct {
	BasePath string
}

// NewStore creates an archive store rooted at basePath, defaulting to
// ~/.mindgate/archive.
func NewStore(basePath string) (*Store, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Join(home, ".mindgate", "archive")
	}

	dirs := []string{
		filepath.Join(basePath, "results"),
		filepath.Join(basePath, "index"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, err
		}
	}

	return &Store{BasePath: basePath}, nil
}

// StoreResult stores a result by its SHA256 content hash in a sharded
// directory structure and appends a line to the daily index.
func (s *Store) StoreResult(result *schema.AnalysisResult) (Ref, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return Ref{}, err
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	// Shard by first 2 chars
	shard := hash[:2]
	dir := filepath.Join(s.BasePath, "results", shard)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Ref{}, err
	}

	path := filepath.Join(dir, hash+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Ref{}, err
	}

	if err := s.appendIndex(result, hash); err != nil {
		return Ref{}, err
	}

	return Ref{SHA256: hash, Path: path}, nil
}

// LoadResult reads a stored result back by its hash.
func (s *Store) LoadResult(hash string) (*schema.AnalysisResult, error) {
	if len(hash) < 3 {
		return nil, fmt.Errorf("invalid result hash %q", hash)
	}

	path := filepath.Join(s.BasePath, "results", hash[:2], hash+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result schema.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("corrupt archived result %s: %w", hash, err)
	}
	return &result, nil
}

// appendIndex adds a one-line summary to the day's index file.
func (s *Store) appendIndex(result *schema.AnalysisResult, hash string) error {
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	path := filepath.Join(s.BasePath, "index", ts.Format("2006-01-02")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s %s %.2f crisis=%v\n",
		ts.Format(time.RFC3339), hash, result.Category, result.Confidence, result.IsCrisis)
	_, err = f.WriteString(line)
	return err
}
