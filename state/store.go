package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Store is the persistence contract for the orchestration record.
// Save is the only way the canonical record changes; Load is idempotent
// and side-effect-free.
type Store interface {
	// Load reads the persisted record. An absent, empty, unparsable or
	// checksum-mismatched record yields the default state, never an
	// error: better to lose progress than to act on corrupted state.
	Load(ctx context.Context) *State

	// Save recomputes the integrity tag, serializes and atomically
	// replaces the canonical record. On failure the prior record is
	// left intact.
	Save(ctx context.Context, st *State) error
}

// FileStore persists the record to a single file. Writes go to a
// temporary sibling first and are renamed over the canonical path, so a
// crash mid-write never leaves a corrupt file observable to readers.
type FileStore struct {
	path     string
	codec    Codec
	accounts int
	logger   *slog.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithCodec selects the serialization codec. Defaults to JSON.
func WithCodec(c Codec) FileOption {
	return func(s *FileStore) { s.codec = c }
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) { s.logger = logger }
}

// NewFileStore creates a FileStore for a pool of accounts accounts.
// The account count shapes the default state returned when the record
// is absent or rejected.
func NewFileStore(path string, accounts int, opts ...FileOption) *FileStore {
	s := &FileStore{
		path:     path,
		codec:    &JSONCodec{},
		accounts: accounts,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) *State {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("state file unreadable, using default state",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		return Default(s.accounts)
	}
	if len(raw) == 0 {
		s.logger.Warn("state file empty, using default state", slog.String("path", s.path))
		return Default(s.accounts)
	}

	storedTag, tag, err := tagOf(s.codec, raw)
	if err != nil {
		s.logger.Error("state file unparsable, using default state",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return Default(s.accounts)
	}
	if storedTag == "" {
		s.logger.Warn("state file has no integrity tag, skipping verification",
			slog.String("path", s.path),
		)
	} else if storedTag != tag {
		s.logger.Error("state integrity tag mismatch, using default state",
			slog.String("path", s.path),
			slog.String("stored", storedTag),
			slog.String("computed", tag),
		)
		return Default(s.accounts)
	}

	// Decode over the default state so fields missing from the stored
	// record keep their defaults (forward-compatible schema evolution).
	st := Default(s.accounts)
	if err := s.codec.Decode(raw, st); err != nil {
		s.logger.Error("state decode failed, using default state",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return Default(s.accounts)
	}
	return st
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, st *State) error {
	tagged := st.Clone()
	tagged.IntegrityTag = ""

	untagged, err := s.codec.Encode(tagged)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	_, tag, err := tagOf(s.codec, untagged)
	if err != nil {
		return fmt.Errorf("state: compute integrity tag: %w", err)
	}
	tagged.IntegrityTag = tag

	raw, err := s.codec.Encode(tagged)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := writeFileSync(tmp, raw); err != nil {
		// Best-effort removal keeps a failed write from shadowing the
		// next attempt.
		_ = os.Remove(tmp)
		return fmt.Errorf("state: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("state: rename over canonical file: %w", err)
	}

	// Keep the caller's copy consistent with what was persisted.
	st.IntegrityTag = tag
	return nil
}

// Path returns the canonical state file location.
func (s *FileStore) Path() string { return s.path }

// tagOf decodes an encoded record into a generic map, strips the
// integrity tag, and hashes the canonical JSON of the remainder.
// Hashing the map rather than the struct keeps verification stable
// across schema additions: a record written by an older build still
// verifies against the fields it actually contains.
func tagOf(codec Codec, raw []byte) (stored, computed string, err error) {
	var m map[string]any
	if err := codec.Decode(raw, &m); err != nil {
		return "", "", err
	}
	if v, ok := m["integrity_tag"].(string); ok {
		stored = v
	}
	delete(m, "integrity_tag")

	canonical, err := json.Marshal(m) // map keys marshal sorted
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256(canonical)
	return stored, hex.EncodeToString(sum[:]), nil
}

// writeFileSync writes data and fsyncs before closing, so the rename
// that follows publishes fully-durable bytes.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
