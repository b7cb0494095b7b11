// Package mask implements the MASK- password obfuscation format used to keep
// passwords out of configuration files in cleartext.
//
// A masked token has the form
//
//	MASK-<ciphertext>;<salt>;<iteration>
//
// The ciphertext is PBEWithMD5AndDES output keyed from a fixed passphrase, the
// embedded salt and the iteration count, rendered with the PicketBox radix-64
// alphabet. Anyone holding a token can reverse it: this is obfuscation, not
// protection.
package mask

import (
	"crypto/des"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/awnumar/memguard"
)

// Prefix marks a masked token.
const Prefix = "MASK-"

// DefaultIterations is used when no iteration count is configured.
const DefaultIterations = 10000

var (
	// ErrFormat is returned by Unmask when the token is not shaped like a masked password.
	ErrFormat = errors.New("wrong masked password format")
	// ErrDecrypt is returned when a well-formed token does not decrypt.
	ErrDecrypt = errors.New("masked password cannot be decrypted")
	// ErrInvalidSalt is returned when the salt is not exactly 8 bytes or contains the field separator.
	ErrInvalidSalt = errors.New("salt must be exactly 8 bytes without ';'")
	// ErrInvalidIteration is returned for iteration counts outside 1..MaxInt32.
	ErrInvalidIteration = errors.New("iteration count must be between 1 and 2147483647")
)

// Mask encrypts secret and formats it as MASK-<ciphertext>;<salt>;<iterations>.
// The result is deterministic for a given secret, salt and iteration count.
func Mask(secret []byte, salt string, iterations int) (string, error) {
	c, err := newCipher(salt, iterations, Encrypt)
	if err != nil {
		return "", err
	}

	ciphertext, err := c.process(secret)
	if err != nil {
		return "", err
	}

	return Prefix + encodeRadix64(ciphertext) + ";" + salt + ";" + strconv.Itoa(iterations), nil
}

// Unmask reverses Mask. The caller owns the returned slice and should wipe it.
func Unmask(token string) ([]byte, error) {
	if len(token) <= len(Prefix) || !strings.HasPrefix(token, Prefix) {
		return nil, ErrFormat
	}

	fields := strings.Split(token[len(Prefix):], ";")
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: expected 3 fields, got %d", ErrFormat, len(fields))
	}
	encoded, salt := fields[0], fields[1]

	n, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: iteration %q is not a 32-bit number", ErrFormat, fields[2])
	}
	iterations := int(n)
	if iterations < 1 {
		return nil, fmt.Errorf("%w: %v", ErrFormat, ErrInvalidIteration)
	}
	if len(salt) != saltSize {
		return nil, fmt.Errorf("%w: %v", ErrFormat, ErrInvalidSalt)
	}

	ciphertext, err := decodeRadix64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	ciphertext = restoreLeadingZeros(ciphertext)

	c, err := newCipher(salt, iterations, Decrypt)
	if err != nil {
		return nil, err
	}
	return c.process(ciphertext)
}

// IsMasked reports whether s carries the masked token prefix.
func IsMasked(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// restoreLeadingZeros left-pads ciphertext to a whole number of cipher blocks.
// The radix-64 encoding drops leading zero bytes of the ciphertext.
func restoreLeadingZeros(ciphertext []byte) []byte {
	rem := len(ciphertext) % des.BlockSize
	if rem == 0 {
		return ciphertext
	}
	out := make([]byte, len(ciphertext)+des.BlockSize-rem)
	copy(out[des.BlockSize-rem:], ciphertext)
	return out
}

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomSalt returns 8 random alphanumeric characters.
func RandomSalt() (string, error) {
	out := make([]byte, 0, saltSize)
	buf := make([]byte, 16)
	limit := byte(256 - 256%len(saltAlphabet))
	for len(out) < saltSize {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		for _, b := range buf {
			if b >= limit || len(out) == saltSize {
				continue
			}
			out = append(out, saltAlphabet[int(b)%len(saltAlphabet)])
		}
	}
	memguard.WipeBytes(buf)
	return string(out), nil
}
