package folder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/issuefs/issuefs/internal/tracker"
)

// cachedSnapshot is the persisted form of the last-fetched issue:
// connection options plus the tracker's raw payload.
type cachedSnapshot struct {
	Options map[string]string `json:"options"`
	Raw     map[string]any    `json:"raw"`
}

// StoreSnapshot overwrites the cached issue snapshot. Called after
// every fetch so the issue can be reconstructed without a network call.
func (f *Folder) StoreSnapshot(snap *tracker.IssueSnapshot) error {
	data, err := json.Marshal(cachedSnapshot{Options: snap.Options, Raw: snap.Raw})
	if err != nil {
		return fmt.Errorf("encode issue snapshot: %w", err)
	}
	if err := atomic.WriteFile(f.MetadataPath(snapshotFileName), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write issue snapshot: %w", err)
	}
	return nil
}

// CachedSnapshot reads the persisted issue snapshot. A missing or
// unreadable snapshot is an error; callers degrade to a live fetch.
func (f *Folder) CachedSnapshot() (*tracker.IssueSnapshot, error) {
	data, err := os.ReadFile(f.MetadataPath(snapshotFileName))
	if err != nil {
		return nil, fmt.Errorf("read issue snapshot: %w", err)
	}
	var stored cachedSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse issue snapshot: %w", err)
	}
	return tracker.SnapshotFromRaw(stored.Options, stored.Raw)
}

func encodeRemoteFileMetadata(meta map[string]string) ([]byte, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode remote file metadata: %w", err)
	}
	return data, nil
}

func decodeRemoteFileMetadata(data []byte) (map[string]string, error) {
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
