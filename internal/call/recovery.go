package call

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RecoveryRecord marks a call attempt that left the idle state. A record
// still on disk at startup means the previous process died mid-call.
type RecoveryRecord struct {
	SessionID    string    `json:"sessionId"`
	PeerIdentity string    `json:"peerIdentity"`
	SavedAt      time.Time `json:"savedAt"`
}

// RecoveryStore persists at most one RecoveryRecord as a JSON file.
type RecoveryStore struct {
	path string
}

func NewRecoveryStore(path string) *RecoveryStore {
	return &RecoveryStore{path: path}
}

// DefaultRecoveryPath puts the record under the user cache directory, or the
// working directory when the platform has none.
func DefaultRecoveryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "pending-session.json"
	}
	return filepath.Join(dir, "wecall", "pending-session.json")
}

func (r *RecoveryStore) Save(rec RecoveryRecord) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}

// Load returns the pending record, if any. A corrupt file counts as absent.
func (r *RecoveryStore) Load() (RecoveryRecord, bool) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return RecoveryRecord{}, false
	}
	var rec RecoveryRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.SessionID == "" {
		return RecoveryRecord{}, false
	}
	return rec, true
}

func (r *RecoveryStore) Clear() error {
	err := os.Remove(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Resolve handles a leftover record from a crashed run: notify the stale
// peer so their session ends, then drop the record. A dead session is never
// resumed.
func (r *RecoveryStore) Resolve(signaler Signaler) {
	rec, ok := r.Load()
	if !ok {
		return
	}
	slog.Info("resolving interrupted call from previous run",
		"sessionID", rec.SessionID, "peer", rec.PeerIdentity, "savedAt", rec.SavedAt)
	if err := signaler.PeerRefresh(rec.SessionID, rec.PeerIdentity); err != nil {
		slog.Debug("stale peer notification failed", "error", err)
	}
	if err := r.Clear(); err != nil {
		slog.Warn("clearing recovery record failed", "error", err)
	}
}
