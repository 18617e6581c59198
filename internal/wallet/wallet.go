// Package wallet implements the append-only, crash-tolerant JSON stores
// for burn records and unspent coin records.
package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wormcore/internal/wormerr"
)

// BurnRecord is one entry in burn.json.
type BurnRecord struct {
	ID      string `json:"id"`
	BurnKey string `json:"burnKey"` // decimal string
	Fee     string `json:"fee"`
	Spend   string `json:"spend"`
	Network string `json:"network"`
}

// CoinRecord is one entry in coins.json.
type CoinRecord struct {
	ID      string `json:"id"`
	BurnKey string `json:"burnKey"`
	Amount  string `json:"amount"`
	Network string `json:"network"`
}

// Store wraps the two append-only JSON arrays that make up the local
// wallet: burn.json and coins.json, both living under the same directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir (typically $HOME/.worm-miner).
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) burnPath() string  { return filepath.Join(s.dir, "burn.json") }
func (s *Store) coinsPath() string { return filepath.Join(s.dir, "coins.json") }

// Init creates the wallet directory and both store files if missing. It
// is idempotent: calling it on an existing non-empty array leaves the
// array unchanged.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("wallet: creating wallet directory: %w", err)
	}
	for _, path := range []string{s.burnPath(), s.coinsPath()} {
		if err := initFile(path); err != nil {
			return err
		}
	}
	return nil
}

func initFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("wallet: stat %s: %w", path, err)
	}
	return writeAtomic(path, []byte("[]"))
}

// NextBurnID returns the id (current length + 1, as a decimal string) the
// next burn.json append would receive.
func (s *Store) NextBurnID() (string, error) {
	var records []BurnRecord
	if err := readJSON(s.burnPath(), &records); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", len(records)+1), nil
}

// NextCoinID returns the id the next coins.json append would receive.
func (s *Store) NextCoinID() (string, error) {
	var records []CoinRecord
	if err := readJSON(s.coinsPath(), &records); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", len(records)+1), nil
}

// AppendBurn reads burn.json, appends entry, and atomically rewrites the
// file (temp-file-and-rename, so readers never observe a half-written
// array — the upgrade §4.9 calls for over a direct overwrite).
func (s *Store) AppendBurn(entry BurnRecord) error {
	var records []BurnRecord
	if err := readJSON(s.burnPath(), &records); err != nil {
		return err
	}
	records = append(records, entry)
	return writeJSONAtomic(s.burnPath(), records)
}

// AppendCoin reads coins.json, appends entry, and atomically rewrites it.
func (s *Store) AppendCoin(entry CoinRecord) error {
	var records []CoinRecord
	if err := readJSON(s.coinsPath(), &records); err != nil {
		return err
	}
	records = append(records, entry)
	return writeJSONAtomic(s.coinsPath(), records)
}

// ListBurns returns every burn record, oldest first.
func (s *Store) ListBurns() ([]BurnRecord, error) {
	var records []BurnRecord
	if err := readJSON(s.burnPath(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListCoins returns every coin record, oldest first.
func (s *Store) ListCoins() ([]CoinRecord, error) {
	var records []CoinRecord
	if err := readJSON(s.coinsPath(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summary is a coarse, human-oriented snapshot of wallet contents used by
// an "info" style inspection, grounded on original_source's cli/info.rs.
type Summary struct {
	BurnCount int
	CoinCount int
}

// Summarize reads both stores and reports their sizes.
func (s *Store) Summarize() (Summary, error) {
	burns, err := s.ListBurns()
	if err != nil {
		return Summary{}, err
	}
	coins, err := s.ListCoins()
	if err != nil {
		return Summary{}, err
	}
	return Summary{BurnCount: len(burns), CoinCount: len(coins)}, nil
}

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Treat an uninitialized store as empty; Init is the
			// idempotent entry point but callers may read before init.
			return nil
		}
		return fmt.Errorf("wallet: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return wormerr.Wrap(wormerr.StoreCorrupt, path, err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("wallet: encoding %s: %w", path, err)
	}
	return writeAtomic(path, raw)
}

// writeAtomic writes data to a temp sibling of path and renames it into
// place, so a crash mid-write never leaves path half-written — readers
// always observe either the old or the new contents.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("wallet: creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("wallet: writing temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("wallet: closing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("wallet: renaming temp file into place for %s: %w", path, err)
	}
	return nil
}
