package secrets

import (
	"errors"
	"fmt"
)

// CredentialStore is an encrypted alias to credential container bound to one
// location and one passphrase. Implementations are selected by type tag
// through a Provider.
type CredentialStore interface {
	// Initialize opens or creates the container described by props.
	Initialize(props Properties, protection ProtectionParameter) error
	// Store creates or replaces the credential for alias.
	Store(alias string, cred Credential) error
	// Retrieve returns nil, nil when alias has no credential.
	Retrieve(alias string) (Credential, error)
	// Remove deletes alias, returning ErrAliasNotFound when it is absent.
	Remove(alias string) error
	Aliases() ([]string, error)
	// Flush persists pending writes. Adapters that write through make it a no-op.
	Flush() error
	Close() error
}

var (
	// ErrStoreNotFound is returned when the store location does not exist and creation was not requested.
	ErrStoreNotFound = errors.New("credential store not found")
	// ErrBadPassword is returned when the store cannot be decrypted with the given passphrase.
	ErrBadPassword = errors.New("wrong credential store password")
	// ErrCorrupt is returned when the container or one of its entries cannot be parsed.
	ErrCorrupt = errors.New("credential store is corrupt")
	// ErrUnsupportedType is returned for a store type tag with no registered adapter.
	ErrUnsupportedType = errors.New("unsupported credential store type")
	// ErrUnsupportedFormat is returned for an unknown keyStoreType property.
	ErrUnsupportedFormat = errors.New("unsupported key store format")
	// ErrEmptyPassword is returned when the protection parameter carries no password.
	ErrEmptyPassword = errors.New("credential store password is empty")
	// ErrInvalidAlias is returned for empty aliases.
	ErrInvalidAlias = errors.New("invalid alias")
	// ErrAliasNotFound is returned by Remove when the alias does not exist.
	ErrAliasNotFound = errors.New("alias not found")
	// ErrReadOnly is returned by writes to a store opened with modifiable=false.
	ErrReadOnly = errors.New("credential store is not modifiable")
	// ErrNotInitialized is returned when a store is used before Initialize or after Close.
	ErrNotInitialized = errors.New("credential store is not initialized")
)

// Kind classifies a StoreError by the operation that failed.
type Kind int

const (
	KindInit Kind = iota + 1
	KindRead
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// StoreError is returned by the facade functions. Err carries the cause and
// usually wraps one of the package sentinels.
type StoreError struct {
	Kind     Kind
	Location string
	Alias    string
	Err      error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	switch e.Kind {
	case KindInit:
		return fmt.Sprintf("unable to open credential store %s: %v", e.Location, e.Err)
	case KindRead:
		if e.Alias == "" {
			return fmt.Sprintf("unable to read credential store: %v", e.Err)
		}
		return fmt.Sprintf("unable to read alias %q: %v", e.Alias, e.Err)
	case KindWrite:
		if e.Alias == "" {
			return fmt.Sprintf("unable to write credential store: %v", e.Err)
		}
		return fmt.Sprintf("unable to write alias %q: %v", e.Alias, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a StoreError of the given kind.
func IsKind(err error, kind Kind) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Kind == kind
}
