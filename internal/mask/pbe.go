package mask

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"fmt"
	"math"
	"strings"

	"github.com/awnumar/memguard"
)

// Frozen PicketBox compatibility parameters. Changing any of them breaks
// every token already written to a configuration file.
const (
	initialKeyMaterial = "somearbitrarycrazystringthatdoesnotmatter"
	saltSize           = 8
	// maxIterations bounds the iteration count to a signed 32-bit integer.
	maxIterations = math.MaxInt32
)

// Mode selects which half of the password-based transform a cipher performs.
type Mode int

const (
	Encrypt Mode = iota
	Decrypt
)

func (m Mode) String() string {
	switch m {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// pbeCipher is PBEWithMD5AndDES (PKCS #5 PBES1) configured for one direction.
type pbeCipher struct {
	mode  Mode
	block cipher.Block
	iv    []byte
}

// ValidateSalt reports whether salt is usable for masking.
func ValidateSalt(salt string) error {
	if len(salt) != saltSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSalt, len(salt), saltSize)
	}
	if strings.ContainsRune(salt, ';') {
		return fmt.Errorf("%w: must not contain ';'", ErrInvalidSalt)
	}
	return nil
}

// newCipher derives the DES key and IV from the fixed key material, the salt
// and the iteration count. Both modes use identical parameters.
func newCipher(salt string, iterations int, mode Mode) (*pbeCipher, error) {
	if err := ValidateSalt(salt); err != nil {
		return nil, err
	}
	if iterations < 1 || iterations > maxIterations {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIteration, iterations)
	}

	derived := deriveKey([]byte(initialKeyMaterial), []byte(salt), iterations)
	defer memguard.WipeBytes(derived)

	block, err := des.NewCipher(derived[:des.BlockSize])
	if err != nil {
		return nil, fmt.Errorf("failed to create DES cipher: %w", err)
	}

	iv := make([]byte, des.BlockSize)
	copy(iv, derived[des.BlockSize:])

	return &pbeCipher{mode: mode, block: block, iv: iv}, nil
}

// deriveKey is PBKDF1 with MD5: T1 = MD5(P || S), Ti = MD5(Ti-1).
// The 16 byte result holds the DES key followed by the IV.
func deriveKey(password, salt []byte, iterations int) []byte {
	h := md5.New()
	h.Write(password)
	h.Write(salt)
	sum := h.Sum(nil)
	for i := 1; i < iterations; i++ {
		next := md5.Sum(sum)
		memguard.WipeBytes(sum)
		sum = next[:]
	}
	return sum
}

// process runs the configured direction over data.
func (c *pbeCipher) process(data []byte) ([]byte, error) {
	switch c.mode {
	case Encrypt:
		padded := pkcs5Pad(data, des.BlockSize)
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
		memguard.WipeBytes(padded)
		return out, nil
	case Decrypt:
		if len(data) == 0 || len(data)%des.BlockSize != 0 {
			return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrDecrypt, len(data), des.BlockSize)
		}
		out := make([]byte, len(data))
		cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, data)
		plain, err := pkcs5Unpad(out, des.BlockSize)
		if err != nil {
			memguard.WipeBytes(out)
			return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		return plain, nil
	default:
		return nil, fmt.Errorf("unknown cipher mode %v", c.mode)
	}
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs5Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty block")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}
	return data[:len(data)-n], nil
}
