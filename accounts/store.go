// Package accounts keeps the list of tracked broker accounts in a single
// JSON file.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/market"
)

var (
	ErrInvalidID        = errors.New("invalid account ID format")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrNotFound         = errors.New("account not found")
	// ErrInvalidRecord is returned for a well-formed file holding a record
	// that cannot be read. The file is left untouched.
	ErrInvalidRecord    = errors.New("invalid account record")
)

// Store is the file-backed account list. Every mutation rewrites the whole
// file. The mutex only orders read-modify-write sequences inside one
// process.
type Store struct {
	path       string
	fallbackID string
	now        func() time.Time
	mu         sync.Mutex
}

// NewStore opens the account file at path, creating it when missing. A new
// file is seeded with fallbackID when that is non-empty.
func NewStore(path, fallbackID string) (*Store, error) {
	s := &Store{path: path, fallbackID: fallbackID, now: time.Now}
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) stamp() string {
	return market.FormatISOTime(s.now().UTC())
}

func (s *Store) ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat accounts file: %w", err)
	}

	accounts := []Account{}
	if s.fallbackID != "" {
		accounts = append(accounts, Account{
			ID:        s.fallbackID,
			Name:      DefaultName(s.fallbackID),
			Enabled:   true,
			CreatedAt: s.stamp(),
		})
	}
	return s.writeUnlocked(accounts)
}

// readUnlocked loads the file. A missing file or one that is not JSON at
// all is replaced by an empty list.
func (s *Store) readUnlocked() ([]Account, error) {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s.resetUnlocked(err)
	case err != nil:
		return nil, fmt.Errorf("read accounts file: %w", err)
	case !json.Valid(data):
		return s.resetUnlocked(errors.New("not valid JSON"))
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, s.path, err)
	}
	if f.Accounts == nil {
		f.Accounts = []Account{}
	}
	return f.Accounts, nil
}

func (s *Store) resetUnlocked(cause error) ([]Account, error) {
	log.Warn().Err(cause).Str("path", s.path).Msg("accounts file unreadable, resetting")
	empty := []Account{}
	if err := s.writeUnlocked(empty); err != nil {
		return nil, err
	}
	return empty, nil
}

func (s *Store) writeUnlocked(accounts []Account) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create accounts dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(fileFormat{Accounts: accounts}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write accounts file: %w", err)
	}
	return nil
}

// List returns every account in file order.
func (s *Store) List() ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUnlocked()
}

// Get returns the account with the given id.
func (s *Store) Get(id string) (Account, error) {
	accounts, err := s.List()
	if err != nil {
		return Account{}, err
	}
	for _, a := range accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
}

// EnabledIDs returns the ids of all enabled accounts in file order.
func (s *Store) EnabledIDs() ([]string, error) {
	accounts, err := s.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a.Enabled {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// Add appends a new enabled account. An empty name becomes
// "Account <id>".
func (s *Store) Add(id, name string) (Account, error) {
	if !ValidateID(id) {
		return Account{}, fmt.Errorf("%q: %w", id, ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readUnlocked()
	if err != nil {
		return Account{}, err
	}
	for _, a := range accounts {
		if a.ID == id {
			return Account{}, fmt.Errorf("account %s: %w", id, ErrDuplicateAccount)
		}
	}

	if name == "" {
		name = DefaultName(id)
	}
	acc := Account{ID: id, Name: name, Enabled: true, CreatedAt: s.stamp()}
	if err := s.writeUnlocked(append(accounts, acc)); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// Update merges u into the account and stamps updated_at.
func (s *Store) Update(id string, u AccountUpdate) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readUnlocked()
	if err != nil {
		return Account{}, err
	}
	for i := range accounts {
		if accounts[i].ID != id {
			continue
		}
		if u.Name != nil {
			accounts[i].Name = *u.Name
		}
		if u.Enabled != nil {
			accounts[i].Enabled = *u.Enabled
		}
		accounts[i].UpdatedAt = s.stamp()
		if err := s.writeUnlocked(accounts); err != nil {
			return Account{}, err
		}
		return accounts[i], nil
	}
	return Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
}

// Delete removes the account with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readUnlocked()
	if err != nil {
		return err
	}
	kept := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(accounts) {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return s.writeUnlocked(kept)
}
