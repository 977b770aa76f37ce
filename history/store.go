package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crosslane/crosslane/types"
)

// SchemaVersion tags the persisted blob. A blob with a different
// version is discarded rather than migrated; history is a convenience
// log, not a ledger.
const SchemaVersion = 1

// DefaultLimit is how many records the log retains before evicting the
// oldest.
const DefaultLimit = 50

type blob struct {
	Version      int                   `json:"version"`
	Transactions []types.HistoryRecord `json:"transactions"`
}

// Store persists the serialized history blob. Load returns an empty
// slice, not an error, when nothing has been stored yet.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// FileStore keeps the blob in a single JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (s *FileStore) Save(data []byte) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}

func encode(records []types.HistoryRecord) ([]byte, error) {
	return json.Marshal(blob{Version: SchemaVersion, Transactions: records})
}

// decode parses a stored blob. Empty input and version mismatches both
// yield an empty history.
func decode(data []byte) []types.HistoryRecord {
	if len(data) == 0 {
		return nil
	}
	var b blob
	if err := json.Unmarshal(data, &b); err != nil || b.Version != SchemaVersion {
		return nil
	}
	return b.Transactions
}
