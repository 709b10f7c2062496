package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
	"go.uber.org/zap"
)

// Store owns the agent's single durable document. The file is rewritten in
// full after every observable side effect; a failed save is logged by the
// caller and the next successful save catches up.
type Store struct {
	path   string
	logger *zap.Logger
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads the state document. A missing file yields an empty state; a
// malformed document yields an empty state with a warning; individually
// invalid fields are dropped rather than failing the load.
func (s *Store) Load() models.AgentState {
	var state models.AgentState

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read state file, starting fresh",
				zap.Error(err),
				zap.String("path", s.path))
		}
		return state
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		s.logger.Warn("Malformed state file, starting fresh",
			zap.Error(err),
			zap.String("path", s.path))
		return state
	}

	if id, ok := asUint64(doc["last_seen_id"]); ok {
		state.LastSeenID = &id
	}

	ap, _ := doc["autopost"].(map[string]any)
	if idx, ok := asUint64(ap["next_index"]); ok {
		state.Autopost.NextIndex = uint32(idx)
	}
	if ts, ok := asFloat64(ap["last_timestamp"]); ok {
		state.Autopost.LastTimestamp = ts
	}
	if hashes, ok := ap["recent_hashes"].([]any); ok {
		for _, h := range hashes {
			if hs, ok := h.(string); ok {
				state.Autopost.RecentHashes = append(state.Autopost.RecentHashes, hs)
			}
		}
	}

	return state
}

// Save writes the full document via a temp file and rename so a crash never
// leaves a torn read behind.
func (s *Store) Save(state models.AgentState) error {
	// The schema defines recent_hashes as a list, so never emit null.
	if state.Autopost.RecentHashes == nil {
		state.Autopost.RecentHashes = []string{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding state: %v", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("error creating temp state file: %v", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("error writing temp state file: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("error syncing temp state file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp state file: %v", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("error renaming temp state file: %v", err)
	}

	// Best effort directory sync for durability; ignore failures.
	if dirFD, err := os.Open(dir); err == nil {
		dirFD.Sync()
		dirFD.Close()
	}
	return nil
}

func asUint64(v any) (uint64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func asFloat64(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
