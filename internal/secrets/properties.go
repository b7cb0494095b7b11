package secrets

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Store type tags and the container format understood by the adapters.
const (
	DefaultStoreType    = "KeyStoreCredentialStore"
	KeyringStoreType    = "KeyringCredentialStore"
	DefaultKeyStoreType = "JWE"
)

// Property names passed to CredentialStore.Initialize.
const (
	PropCreate       = "create"
	PropKeyStoreType = "keyStoreType"
	PropLocation     = "location"
	PropModifiable   = "modifiable"
)

// Properties configures a store instance.
type Properties map[string]string

// NewProperties returns the property set used by Provider.Open: the default
// key store format, an absolute location, and modifiable=true.
func NewProperties(location string, create bool) (Properties, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store location: %w", err)
	}
	return Properties{
		PropCreate:       strconv.FormatBool(create),
		PropKeyStoreType: DefaultKeyStoreType,
		PropLocation:     abs,
		PropModifiable:   strconv.FormatBool(true),
	}, nil
}

func (p Properties) Location() string     { return p[PropLocation] }
func (p Properties) KeyStoreType() string { return p[PropKeyStoreType] }
func (p Properties) Create() bool         { return p.flag(PropCreate) }
func (p Properties) Modifiable() bool     { return p.flag(PropModifiable) }

func (p Properties) flag(name string) bool {
	v, err := strconv.ParseBool(p[name])
	return err == nil && v
}

// ProtectionParameter carries the credential that unlocks a store.
type ProtectionParameter struct {
	Credential *PasswordCredential
}

// BuildPasswordProtection wraps password as a clear password credential.
func BuildPasswordProtection(password string) ProtectionParameter {
	return ProtectionParameter{
		Credential: &PasswordCredential{Password: NewClearPassword([]byte(password))},
	}
}

// password returns a copy of the clear passphrase.
func (p ProtectionParameter) password() ([]byte, error) {
	if p.Credential == nil {
		return nil, ErrEmptyPassword
	}
	clearPw, ok := p.Credential.Password.(*ClearPassword)
	if !ok {
		return nil, fmt.Errorf("protection parameter must hold a clear password")
	}
	pw := clearPw.Password()
	if len(pw) == 0 {
		return nil, ErrEmptyPassword
	}
	return pw, nil
}
