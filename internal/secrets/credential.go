package secrets

import (
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
)

// Password algorithm tags.
const (
	AlgorithmClear  = "clear"
	AlgorithmMasked = "masked-MD5-DES"
)

const (
	typePassword    = "password"
	typeBearerToken = "bearer-token"
)

// Credential is a value held under an alias.
type Credential interface {
	credentialType() string
}

// Password is the payload of a PasswordCredential.
type Password interface {
	Algorithm() string
}

// ClearPassword holds cleartext password bytes.
type ClearPassword struct {
	chars []byte
}

// NewClearPassword copies secret into a new ClearPassword.
func NewClearPassword(secret []byte) *ClearPassword {
	chars := make([]byte, len(secret))
	copy(chars, secret)
	return &ClearPassword{chars: chars}
}

func (p *ClearPassword) Algorithm() string { return AlgorithmClear }

// Password returns a copy of the cleartext.
func (p *ClearPassword) Password() []byte {
	out := make([]byte, len(p.chars))
	copy(out, p.chars)
	return out
}

// Wipe zeroes the held bytes.
func (p *ClearPassword) Wipe() {
	memguard.WipeBytes(p.chars)
}

// MaskedPassword holds a MASK- token. The store never unmasks it.
type MaskedPassword struct {
	Token string
}

func (p *MaskedPassword) Algorithm() string { return AlgorithmMasked }

// PasswordCredential wraps a Password.
type PasswordCredential struct {
	Password Password
}

func (c *PasswordCredential) credentialType() string { return typePassword }

// BearerTokenCredential holds an opaque bearer token.
type BearerTokenCredential struct {
	Token string
}

func (c *BearerTokenCredential) credentialType() string { return typeBearerToken }

// storedCredential is the persisted form shared by the adapters.
type storedCredential struct {
	Type      string `json:"type"`
	Algorithm string `json:"algorithm,omitempty"`
	Value     []byte `json:"value"`
}

func encodeCredential(cred Credential) (storedCredential, error) {
	switch c := cred.(type) {
	case *PasswordCredential:
		switch p := c.Password.(type) {
		case *ClearPassword:
			return storedCredential{Type: typePassword, Algorithm: AlgorithmClear, Value: p.Password()}, nil
		case *MaskedPassword:
			return storedCredential{Type: typePassword, Algorithm: AlgorithmMasked, Value: []byte(p.Token)}, nil
		case nil:
			return storedCredential{}, fmt.Errorf("password credential has no password")
		default:
			return storedCredential{}, fmt.Errorf("unsupported password algorithm %q", p.Algorithm())
		}
	case *BearerTokenCredential:
		return storedCredential{Type: typeBearerToken, Value: []byte(c.Token)}, nil
	case nil:
		return storedCredential{}, fmt.Errorf("credential is nil")
	default:
		return storedCredential{}, fmt.Errorf("unsupported credential type %T", cred)
	}
}

func (s storedCredential) decode() (Credential, error) {
	switch s.Type {
	case typePassword:
		switch s.Algorithm {
		case AlgorithmClear:
			return &PasswordCredential{Password: NewClearPassword(s.Value)}, nil
		case AlgorithmMasked:
			return &PasswordCredential{Password: &MaskedPassword{Token: string(s.Value)}}, nil
		default:
			return nil, fmt.Errorf("%w: unknown password algorithm %q", ErrCorrupt, s.Algorithm)
		}
	case typeBearerToken:
		return &BearerTokenCredential{Token: string(s.Value)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown credential type %q", ErrCorrupt, s.Type)
	}
}

func (s storedCredential) wipe() {
	memguard.WipeBytes(s.Value)
}

// normalizeAlias lower-cases alias. Aliases are case-insensitive.
func normalizeAlias(alias string) (string, error) {
	if strings.TrimSpace(alias) == "" {
		return "", fmt.Errorf("%w: alias is empty", ErrInvalidAlias)
	}
	return strings.ToLower(alias), nil
}
