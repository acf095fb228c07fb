// Package entitystore implements the two append-only, atomic JSON helpers
// the dispatch pipeline uses for durable per-guild state (spec §4.9):
// per-user tool-result logs and per-event canonical records. Every write is
// load-modify-write-temp-then-rename so a crash mid-write never corrupts the
// file it was replacing.
package entitystore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tltguild/tlt-core/internal/apierr"
	"github.com/tltguild/tlt-core/internal/telemetry"
)

// SlideshowEntry is one ordered photo reference in an event's slideshow
// array, recovered from the original implementation's slideshow feature.
type SlideshowEntry struct {
	PhotoURL  string    `json:"photo_url"`
	UserID    string    `json:"user_id"`
	AddedAt   time.Time `json:"added_at"`
	SortOrder int       `json:"sort_order"`
}

// CanvasPlacement is one vibe-bit placement on the shared vibe-canvas,
// recovered from the original implementation's vibe_bit feature.
type CanvasPlacement struct {
	UserID   string  `json:"user_id"`
	BitID    string  `json:"bit_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	ZIndex   int     `json:"z_index"`
	PlacedAt string  `json:"placed_at"`
}

// Store roots every operation at a guild-data directory (spec §6 persisted
// state layout: data/<guild-id>/<event-id>/...). perKey guards concurrent
// writers to the same file so load-modify-write sequences do not race.
type Store struct {
	root string
	log  telemetry.Logger

	mu     sync.Mutex
	perKey map[string]*sync.Mutex
}

// New constructs a Store rooted at root (typically Config.GuildDataRoot).
func New(root string, log telemetry.Logger) *Store {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	return &Store{root: root, log: log, perKey: make(map[string]*sync.Mutex)}
}

func (s *Store) lockFor(path string) func() {
	s.mu.Lock()
	m, ok := s.perKey[path]
	if !ok {
		m = &sync.Mutex{}
		s.perKey[path] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// UserStatePath returns the append-only per-user tool-result log path.
func (s *Store) UserStatePath(guildID, eventID, userID string) string {
	return filepath.Join(s.root, guildID, eventID, userID, "state.json")
}

// EventPath returns the canonical per-event record path.
func (s *Store) EventPath(guildID, eventID string) string {
	return filepath.Join(s.root, guildID, eventID, "event.json")
}

// AppendUserState appends record to the user's append-only state array,
// creating the file and its parent directories if missing.
func (s *Store) AppendUserState(ctx context.Context, guildID, eventID, userID string, record any) error {
	path := s.UserStatePath(guildID, eventID, userID)
	unlock := s.lockFor(path)
	defer unlock()

	var entries []json.RawMessage
	if err := readJSON(path, &entries); err != nil && !os.IsNotExist(err) {
		s.log.Error(ctx, "entitystore: read user state failed", "path", path, "error", err)
		return apierr.Wrap(apierr.KindIO, "read user state", err)
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "encode user state record", err)
	}
	entries = append(entries, encoded)
	if err := writeJSONAtomic(path, entries); err != nil {
		s.log.Error(ctx, "entitystore: write user state failed", "path", path, "error", err)
		return apierr.Wrap(apierr.KindIO, "write user state", err)
	}
	return nil
}

// SetField sets a top-level field on the event record, creating the record
// and its parent directories if missing.
func (s *Store) SetField(ctx context.Context, guildID, eventID, field string, value any) error {
	return s.mutateEvent(ctx, guildID, eventID, func(doc map[string]any) error {
		doc[field] = value
		return nil
	})
}

// SetNestedField sets a dotted-path field (e.g. "event_manager_data.title"),
// creating intermediate objects as needed.
func (s *Store) SetNestedField(ctx context.Context, guildID, eventID, dottedPath string, value any) error {
	return s.mutateEvent(ctx, guildID, eventID, func(doc map[string]any) error {
		setNested(doc, splitPath(dottedPath), value)
		return nil
	})
}

// AppendToArray appends value to the named top-level array field, creating
// the field if absent.
func (s *Store) AppendToArray(ctx context.Context, guildID, eventID, field string, value any) error {
	return s.mutateEvent(ctx, guildID, eventID, func(doc map[string]any) error {
		arr, _ := doc[field].([]any)
		arr = append(arr, value)
		doc[field] = arr
		return nil
	})
}

// RemoveFromArray removes every element of the named array field for which
// match returns true.
func (s *Store) RemoveFromArray(ctx context.Context, guildID, eventID, field string, match func(el map[string]any) bool) error {
	return s.mutateEvent(ctx, guildID, eventID, func(doc map[string]any) error {
		raw, ok := doc[field].([]any)
		if !ok {
			return nil
		}
		kept := make([]any, 0, len(raw))
		for _, el := range raw {
			m, ok := el.(map[string]any)
			if ok && match(m) {
				continue
			}
			kept = append(kept, el)
		}
		doc[field] = kept
		return nil
	})
}

// ReplaceInArrayByUser replaces any element of field whose "user_id" key
// equals userID with value, or appends value if no such element exists. This
// backs the photo vibe-check replace-on-match-by-user invariant (P7).
func (s *Store) ReplaceInArrayByUser(ctx context.Context, guildID, eventID, field, userID string, value map[string]any) error {
	return s.mutateEvent(ctx, guildID, eventID, func(doc map[string]any) error {
		raw, _ := doc[field].([]any)
		replaced := false
		for i, el := range raw {
			m, ok := el.(map[string]any)
			if ok && fmt.Sprint(m["user_id"]) == userID {
				raw[i] = value
				replaced = true
			}
		}
		if !replaced {
			raw = append(raw, value)
		}
		doc[field] = raw
		return nil
	})
}

// ReadEvent loads the current event record, returning an empty map if none exists.
func (s *Store) ReadEvent(_ context.Context, guildID, eventID string) (map[string]any, error) {
	path := s.EventPath(guildID, eventID)
	unlock := s.lockFor(path)
	defer unlock()

	doc := map[string]any{}
	if err := readJSON(path, &doc); err != nil && !os.IsNotExist(err) {
		return nil, apierr.Wrap(apierr.KindIO, "read event record", err)
	}
	return doc, nil
}

func (s *Store) mutateEvent(ctx context.Context, guildID, eventID string, mutate func(doc map[string]any) error) error {
	path := s.EventPath(guildID, eventID)
	unlock := s.lockFor(path)
	defer unlock()

	doc := map[string]any{}
	if err := readJSON(path, &doc); err != nil && !os.IsNotExist(err) {
		s.log.Error(ctx, "entitystore: read event record failed", "path", path, "error", err)
		return apierr.Wrap(apierr.KindIO, "read event record", err)
	}
	if err := mutate(doc); err != nil {
		return err
	}
	if err := writeJSONAtomic(path, doc); err != nil {
		s.log.Error(ctx, "entitystore: write event record failed", "path", path, "error", err)
		return apierr.Wrap(apierr.KindIO, "write event record", err)
	}
	return nil
}

func readJSON(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

// writeJSONAtomic writes value to path by encoding to a sibling temp file and
// renaming over the destination, so concurrent readers never observe a
// partially written file.
func writeJSONAtomic(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func splitPath(dotted string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			parts = append(parts, dotted[start:i])
			start = i + 1
		}
	}
	parts = append(parts, dotted[start:])
	return parts
}

func setNested(doc map[string]any, path []string, value any) {
	cur := doc
	for i, key := range path {
		if i == len(path)-1 {
			cur[key] = value
			return
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
}
