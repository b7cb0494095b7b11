package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	jose "github.com/dvsekhvalnov/jose2go"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	lockTimeout    = 10 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// KeyStoreCredentialStore keeps every entry in a single file: a JWE compact
// token (PBES2-HS256+A128KW key wrapping, A256GCM content encryption) keyed by
// the store passphrase. Writes stay in memory until Flush.
type KeyStoreCredentialStore struct {
	location   string
	password   []byte
	modifiable bool
	id         string
	created    time.Time
	entries    map[string]storedCredential
	ready      bool
}

// keyStorePayload is the decrypted container content.
type keyStorePayload struct {
	Format  string                      `json:"format"`
	ID      string                      `json:"id"`
	Created time.Time                   `json:"created"`
	Entries map[string]storedCredential `json:"entries"`
}

// NewKeyStoreCredentialStore returns an uninitialized file-backed store.
func NewKeyStoreCredentialStore() *KeyStoreCredentialStore {
	return &KeyStoreCredentialStore{}
}

// Initialize loads the container at props.Location(). A missing file is an
// error unless props.Create() is set, in which case an empty store is
// prepared and first written by Flush. An existing file is always loaded,
// create or not, so its entries are never discarded.
func (s *KeyStoreCredentialStore) Initialize(props Properties, protection ProtectionParameter) error {
	if s.ready {
		return fmt.Errorf("credential store already initialized for %s", s.location)
	}
	if format := props.KeyStoreType(); format != DefaultKeyStoreType {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	password, err := protection.password()
	if err != nil {
		return err
	}

	location := props.Location()
	if location == "" {
		return fmt.Errorf("%w: no location given", ErrStoreNotFound)
	}

	s.location = location
	s.password = password
	s.modifiable = props.Modifiable()

	_, err = os.Stat(location)
	switch {
	case err == nil:
		if err := s.load(); err != nil {
			s.wipe()
			return err
		}
	case os.IsNotExist(err):
		if !props.Create() {
			s.wipe()
			return fmt.Errorf("%w: %s", ErrStoreNotFound, location)
		}
		s.id = uuid.NewString()
		s.created = time.Now().UTC()
		s.entries = make(map[string]storedCredential)
	default:
		s.wipe()
		return fmt.Errorf("failed to stat credential store: %w", err)
	}

	s.ready = true
	return nil
}

// ID returns the identifier assigned when the store was created.
func (s *KeyStoreCredentialStore) ID() string {
	return s.id
}

// Created returns the creation time recorded in the container.
func (s *KeyStoreCredentialStore) Created() time.Time {
	return s.created
}

// Location returns the absolute path of the container file.
func (s *KeyStoreCredentialStore) Location() string {
	return s.location
}

func (s *KeyStoreCredentialStore) lockPath() string {
	return s.location + ".lock"
}

// load decrypts and parses the container file under a shared lock.
func (s *KeyStoreCredentialStore) load() error {
	lock := flock.New(s.lockPath())
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout")
	}
	defer lock.Unlock()

	data, err := os.ReadFile(s.location)
	if err != nil {
		return fmt.Errorf("failed to read credential store: %w", err)
	}

	// A JWE compact token has exactly five dot-separated parts
	token := strings.TrimSpace(string(data))
	if strings.Count(token, ".") != 4 {
		return fmt.Errorf("%w: %s is not a JWE container", ErrCorrupt, s.location)
	}

	payload, _, err := jose.Decode(token, string(s.password))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPassword, err)
	}

	plaintext := []byte(payload)
	defer memguard.WipeBytes(plaintext)

	var content keyStorePayload
	if err := json.Unmarshal(plaintext, &content); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if content.Format != DefaultKeyStoreType {
		return fmt.Errorf("%w: container format %q", ErrUnsupportedFormat, content.Format)
	}
	if content.Entries == nil {
		content.Entries = make(map[string]storedCredential)
	}

	s.id = content.ID
	s.created = content.Created
	s.entries = content.Entries
	return nil
}

// Flush encrypts the entries and replaces the container file atomically
// under an exclusive lock.
func (s *KeyStoreCredentialStore) Flush() error {
	if !s.ready {
		return ErrNotInitialized
	}

	dir := filepath.Dir(s.location)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential store directory: %w", err)
	}

	lock := flock.New(s.lockPath())
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout")
	}
	defer lock.Unlock()

	plaintext, err := json.Marshal(keyStorePayload{
		Format:  DefaultKeyStoreType,
		ID:      s.id,
		Created: s.created,
		Entries: s.entries,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize credential store: %w", err)
	}
	defer memguard.WipeBytes(plaintext)

	token, err := jose.Encrypt(string(plaintext), jose.PBES2_HS256_A128KW, jose.A256GCM, string(s.password),
		jose.Headers(map[string]interface{}{
			"cty": "credstore+json",
		}))
	if err != nil {
		return fmt.Errorf("failed to encrypt credential store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.location)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credential store permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	if err := os.Rename(tmpName, s.location); err != nil {
		return fmt.Errorf("failed to replace credential store: %w", err)
	}

	return nil
}

// Store creates or replaces the credential for alias in memory.
func (s *KeyStoreCredentialStore) Store(alias string, cred Credential) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if !s.modifiable {
		return ErrReadOnly
	}

	key, err := normalizeAlias(alias)
	if err != nil {
		return err
	}

	stored, err := encodeCredential(cred)
	if err != nil {
		return err
	}

	if old, ok := s.entries[key]; ok {
		old.wipe()
	}
	s.entries[key] = stored
	return nil
}

// Retrieve returns the credential for alias, or nil when there is none.
func (s *KeyStoreCredentialStore) Retrieve(alias string) (Credential, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}

	key, err := normalizeAlias(alias)
	if err != nil {
		return nil, err
	}

	stored, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return stored.decode()
}

// Remove deletes alias from memory.
func (s *KeyStoreCredentialStore) Remove(alias string) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if !s.modifiable {
		return ErrReadOnly
	}

	key, err := normalizeAlias(alias)
	if err != nil {
		return err
	}

	stored, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAliasNotFound, key)
	}
	stored.wipe()
	delete(s.entries, key)
	return nil
}

// Aliases returns all aliases, sorted.
func (s *KeyStoreCredentialStore) Aliases() ([]string, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}

	aliases := make([]string, 0, len(s.entries))
	for k := range s.entries {
		aliases = append(aliases, k)
	}
	sort.Strings(aliases)
	return aliases, nil
}

// Close discards unflushed writes and wipes the in-memory secrets.
func (s *KeyStoreCredentialStore) Close() error {
	s.wipe()
	return nil
}

func (s *KeyStoreCredentialStore) wipe() {
	for _, stored := range s.entries {
		stored.wipe()
	}
	s.entries = nil
	memguard.WipeBytes(s.password)
	s.password = nil
	s.ready = false
}
