package secrets

import "errors"

// StoreSecret creates or overwrites alias with a clear password credential.
// Nothing is persisted until the store is flushed (see Flush).
func StoreSecret(store CredentialStore, alias string, secret []byte) error {
	clearPw := NewClearPassword(secret)
	defer clearPw.Wipe()

	cred := &PasswordCredential{Password: clearPw}
	if err := store.Store(alias, cred); err != nil {
		return &StoreError{Kind: KindWrite, Alias: alias, Err: err}
	}
	return nil
}

// StoreMasked stores a MASK- token as a masked password credential.
func StoreMasked(store CredentialStore, alias, token string) error {
	cred := &PasswordCredential{Password: &MaskedPassword{Token: token}}
	if err := store.Store(alias, cred); err != nil {
		return &StoreError{Kind: KindWrite, Alias: alias, Err: err}
	}
	return nil
}

// RetrieveSecret returns the cleartext stored under alias. ok is false when
// the alias is absent, when it holds something other than a password, or
// when the password is not a clear password. The caller should wipe secret.
func RetrieveSecret(store CredentialStore, alias string) (secret []byte, ok bool, err error) {
	cred, err := store.Retrieve(alias)
	if err != nil {
		return nil, false, &StoreError{Kind: KindRead, Alias: alias, Err: err}
	}

	pc, isPassword := cred.(*PasswordCredential)
	if !isPassword || pc.Password == nil {
		return nil, false, nil
	}
	clearPw, isClear := pc.Password.(*ClearPassword)
	if !isClear {
		return nil, false, nil
	}

	secret = clearPw.Password()
	clearPw.Wipe()
	return secret, true, nil
}

// RemoveSecret deletes alias. A missing alias yields a KindWrite error
// wrapping ErrAliasNotFound.
func RemoveSecret(store CredentialStore, alias string) error {
	if err := store.Remove(alias); err != nil {
		return &StoreError{Kind: KindWrite, Alias: alias, Err: err}
	}
	return nil
}

// Exists reports whether alias holds any credential.
func Exists(store CredentialStore, alias string) (bool, error) {
	cred, err := store.Retrieve(alias)
	if err != nil {
		return false, &StoreError{Kind: KindRead, Alias: alias, Err: err}
	}
	if pc, ok := cred.(*PasswordCredential); ok {
		if clearPw, ok := pc.Password.(*ClearPassword); ok {
			clearPw.Wipe()
		}
	}
	return cred != nil, nil
}

// Aliases lists the aliases in store, sorted.
func Aliases(store CredentialStore) ([]string, error) {
	aliases, err := store.Aliases()
	if err != nil {
		return nil, &StoreError{Kind: KindRead, Err: err}
	}
	return aliases, nil
}

// Flush persists pending writes.
func Flush(store CredentialStore) error {
	if err := store.Flush(); err != nil {
		return &StoreError{Kind: KindWrite, Err: err}
	}
	return nil
}

// IsNotFound reports whether err means the store location does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound)
}
