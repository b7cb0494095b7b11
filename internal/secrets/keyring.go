package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/99designs/keyring"
	"github.com/awnumar/memguard"
)

const keyringServiceName = "credstore"

// KeyringCredentialStore implements CredentialStore on the 99designs/keyring
// file backend. The location is a directory holding one JWE file per alias.
// Writes go straight to disk.
type KeyringCredentialStore struct {
	ring       keyring.Keyring
	dir        string
	modifiable bool
}

// NewKeyringCredentialStore returns an uninitialized keyring-backed store.
func NewKeyringCredentialStore() *KeyringCredentialStore {
	return &KeyringCredentialStore{}
}

// Initialize opens the keyring directory, creating it when props.Create() is
// set. The passphrase is checked against an existing item, if there is one.
func (s *KeyringCredentialStore) Initialize(props Properties, protection ProtectionParameter) error {
	if s.ring != nil {
		return fmt.Errorf("credential store already initialized for %s", s.dir)
	}
	if format := props.KeyStoreType(); format != DefaultKeyStoreType {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	password, err := protection.password()
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(password)

	dir := props.Location()
	if dir == "" {
		return fmt.Errorf("%w: no location given", ErrStoreNotFound)
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a keyring directory", ErrCorrupt, dir)
		}
	case os.IsNotExist(err):
		if !props.Create() {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, dir)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create keyring directory: %w", err)
		}
	default:
		return fmt.Errorf("failed to stat keyring directory: %w", err)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:      keyringServiceName,
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          dir,
		FilePasswordFunc: keyring.FixedStringPrompt(string(password)),
	})
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}

	keys, err := ring.Keys()
	if err != nil {
		return fmt.Errorf("failed to list keyring: %w", err)
	}
	if len(keys) > 0 {
		if _, err := ring.Get(keys[0]); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPassword, err)
		}
	}

	s.ring = ring
	s.dir = dir
	s.modifiable = props.Modifiable()
	return nil
}

// Store writes the credential for alias to the keyring.
func (s *KeyringCredentialStore) Store(alias string, cred Credential) error {
	if s.ring == nil {
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
	defer stored.wipe()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to serialize credential: %w", err)
	}
	defer memguard.WipeBytes(data)

	item := keyring.Item{
		Key:         key,
		Data:        data,
		Label:       stored.Type,
		Description: stored.Algorithm,
	}
	if err := s.ring.Set(item); err != nil {
		return fmt.Errorf("keyring set failed: %w", err)
	}
	return nil
}

// Retrieve reads the credential for alias, or nil when there is none.
func (s *KeyringCredentialStore) Retrieve(alias string) (Credential, error) {
	if s.ring == nil {
		return nil, ErrNotInitialized
	}

	key, err := normalizeAlias(alias)
	if err != nil {
		return nil, err
	}

	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring get failed: %w", err)
	}
	defer memguard.WipeBytes(item.Data)

	var stored storedCredential
	if err := json.Unmarshal(item.Data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer stored.wipe()

	return stored.decode()
}

// Remove deletes alias from the keyring.
func (s *KeyringCredentialStore) Remove(alias string) error {
	if s.ring == nil {
		return ErrNotInitialized
	}
	if !s.modifiable {
		return ErrReadOnly
	}

	key, err := normalizeAlias(alias)
	if err != nil {
		return err
	}

	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrAliasNotFound, key)
		}
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

// Aliases returns all aliases, sorted.
func (s *KeyringCredentialStore) Aliases() ([]string, error) {
	if s.ring == nil {
		return nil, ErrNotInitialized
	}

	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("keyring list failed: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Flush is a no-op: every write is already on disk.
func (s *KeyringCredentialStore) Flush() error {
	if s.ring == nil {
		return ErrNotInitialized
	}
	return nil
}

func (s *KeyringCredentialStore) Close() error {
	s.ring = nil
	return nil
}
