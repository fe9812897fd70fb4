package nft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Journal entry states
const (
	JournalStatePending = "PENDING"
	JournalStateMined   = "MINED"
)

// JournalEntry records a mint transaction that was broadcast but not yet
// confirmed, so a restart can report its outcome.
type JournalEntry struct {
	TxHash          string    `json:"tx_hash"`
	TokenURI        string    `json:"token_uri"`
	Account         string    `json:"account"`
	ChainID         string    `json:"chain_id"`
	ContractAddress string    `json:"contract_address"`
	ValueWei        string    `json:"value_wei"`
	State           string    `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Journal stores pending mint entries as one JSON file per transaction.
type Journal struct {
	dir string
}

// NewJournal creates a journal rooted at dir
func NewJournal(dir string) *Journal {
	return &Journal{dir: dir}
}

func (j *Journal) path(txHash string) string {
	return filepath.Join(j.dir, strings.ToLower(txHash)+".json")
}

func (j *Journal) ensureDir() error {
	return os.MkdirAll(j.dir, 0700)
}

// Load loads the entry for txHash. Returns nil, nil when none exists.
func (j *Journal) Load(txHash string) (*JournalEntry, error) {
	data, err := os.ReadFile(j.path(txHash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var entry JournalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse journal file: %w", err)
	}

	return &entry, nil
}

// Save writes entry atomically.
func (j *Journal) Save(entry *JournalEntry) error {
	if entry.TxHash == "" {
		return fmt.Errorf("journal entry has no tx hash")
	}
	if err := j.ensureDir(); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	entry.UpdatedAt = time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = entry.UpdatedAt
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	path := j.path(entry.TxHash)

	// Write atomically using temp file + rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename journal temp file: %w", err)
	}

	return nil
}

// Delete removes the entry for txHash. Missing entries are not an error.
func (j *Journal) Delete(txHash string) error {
	if err := os.Remove(j.path(txHash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}
	return nil
}

// List returns every readable entry. Corrupt files are skipped.
func (j *Journal) List() ([]*JournalEntry, error) {
	if err := j.ensureDir(); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	files, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var entries []*JournalEntry
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		entry, err := j.Load(strings.TrimSuffix(f.Name(), ".json"))
		if err != nil || entry == nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// CleanupOld removes entries not updated within maxAge.
func (j *Journal) CleanupOld(maxAge time.Duration) (int, error) {
	entries, err := j.List()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0
	for _, entry := range entries {
		if now.Sub(entry.UpdatedAt) > maxAge {
			if err := j.Delete(entry.TxHash); err == nil {
				deleted++
			}
		}
	}

	return deleted, nil
}
