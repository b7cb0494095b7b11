package secrets

import (
	"fmt"
	"sort"
	"strings"
)

// Factory creates an uninitialized store adapter.
type Factory func() CredentialStore

// Provider maps store type tags to adapters. The process builds one with
// NewProvider at start-up and hands it to whatever opens stores.
type Provider struct {
	factories map[string]Factory
}

// NewProvider returns a provider with the built-in adapters registered.
func NewProvider() *Provider {
	p := &Provider{factories: make(map[string]Factory)}
	p.Register(DefaultStoreType, func() CredentialStore { return NewKeyStoreCredentialStore() })
	p.Register(KeyringStoreType, func() CredentialStore { return NewKeyringCredentialStore() })
	return p
}

// Register adds or replaces the adapter for storeType.
func (p *Provider) Register(storeType string, factory Factory) {
	p.factories[storeType] = factory
}

// Types returns the registered type tags, sorted.
func (p *Provider) Types() []string {
	types := make([]string, 0, len(p.factories))
	for t := range p.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New instantiates the adapter for storeType. An empty tag selects DefaultStoreType.
func (p *Provider) New(storeType string) (CredentialStore, error) {
	if storeType == "" {
		storeType = DefaultStoreType
	}
	factory, ok := p.factories[storeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s (valid: %s)", ErrUnsupportedType, storeType, strings.Join(p.Types(), ", "))
	}
	return factory(), nil
}

// Open creates a store of storeType at location, protected by password. With
// createIfMissing an existing store is opened and its entries are kept.
// All failures are *StoreError with Kind KindInit.
func (p *Provider) Open(storeType, location, password string, createIfMissing bool) (CredentialStore, error) {
	if strings.TrimSpace(location) == "" {
		return nil, &StoreError{Kind: KindInit, Err: fmt.Errorf("%w: no location given", ErrStoreNotFound)}
	}

	props, err := NewProperties(location, createIfMissing)
	if err != nil {
		return nil, &StoreError{Kind: KindInit, Location: location, Err: err}
	}

	store, err := p.New(storeType)
	if err != nil {
		return nil, &StoreError{Kind: KindInit, Location: props.Location(), Err: err}
	}

	protection := BuildPasswordProtection(password)
	defer protection.Credential.Password.(*ClearPassword).Wipe()

	if err := store.Initialize(props, protection); err != nil {
		return nil, &StoreError{Kind: KindInit, Location: props.Location(), Err: err}
	}
	return store, nil
}
