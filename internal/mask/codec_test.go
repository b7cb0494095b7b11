package mask

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		salt       string
		iterations int
	}{
		{name: "simple", secret: "hunter2", salt: "12345678", iterations: 100},
		{name: "single iteration", secret: "hunter2", salt: "12345678", iterations: 1},
		{name: "empty secret", secret: "", salt: "abcdefgh", iterations: 10},
		{name: "block sized secret", secret: "8charsxx", salt: "saltsalt", iterations: 50},
		{name: "long secret", secret: strings.Repeat("p@ss;word", 20), salt: "Zz09Zz09", iterations: 1000},
		{name: "unicode secret", secret: "pässwörd-密码", salt: "k8J2mQ7x", iterations: 7},
		{name: "semicolons in secret", secret: "a;b;c", salt: "12345678", iterations: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Mask([]byte(tt.secret), tt.salt, tt.iterations)
			require.NoError(t, err)

			got, err := Unmask(token)
			require.NoError(t, err)
			assert.Equal(t, tt.secret, string(got))
		})
	}
}

func TestMaskScenario(t *testing.T) {
	token, err := Mask([]byte("hunter2"), "12345678", 100)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "MASK-"))
	assert.Equal(t, 2, strings.Count(token, ";"))

	fields := strings.Split(strings.TrimPrefix(token, "MASK-"), ";")
	require.Len(t, fields, 3)
	assert.Equal(t, "12345678", fields[1])
	assert.Equal(t, "100", fields[2])

	secret, err := Unmask(token)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(secret))
}

func TestMaskIsDeterministic(t *testing.T) {
	a, err := Mask([]byte("hunter2"), "12345678", 100)
	require.NoError(t, err)
	b, err := Mask([]byte("hunter2"), "12345678", 100)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Mask([]byte("hunter2"), "12345679", 100)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestMaskUsesRadix64Alphabet(t *testing.T) {
	token, err := Mask([]byte("hunter2"), "12345678", 100)
	require.NoError(t, err)

	encoded := strings.SplitN(strings.TrimPrefix(token, Prefix), ";", 2)[0]
	for _, r := range encoded {
		assert.Contains(t, radix64Alphabet, string(r))
	}
}

func TestMaskRejectsBadParameters(t *testing.T) {
	_, err := Mask([]byte("x"), "1234567", 10)
	assert.ErrorIs(t, err, ErrInvalidSalt)

	_, err = Mask([]byte("x"), "12345678", 0)
	assert.ErrorIs(t, err, ErrInvalidIteration)

	_, err = Mask([]byte("x"), "12345678", -5)
	assert.ErrorIs(t, err, ErrInvalidIteration)

	// A separator in the salt would produce a token with four fields
	_, err = Mask([]byte("x"), "1234;678", 10)
	assert.ErrorIs(t, err, ErrInvalidSalt)

	if strconv.IntSize == 64 {
		_, err = Mask([]byte("x"), "12345678", int(^uint(0)>>1))
		assert.ErrorIs(t, err, ErrInvalidIteration)
	}
}

// Vector from the WildFly elytron-tool documentation.
func TestMaskKnownAnswer(t *testing.T) {
	const expected = "MASK-8VzWsSNwBaR676g8ujiIDdFKwSjOBHCHgnKf17nun3v;12345678;123"

	token, err := Mask([]byte("supersecretstorepassword"), "12345678", 123)
	require.NoError(t, err)
	assert.Equal(t, expected, token)

	secret, err := Unmask(expected)
	require.NoError(t, err)
	assert.Equal(t, "supersecretstorepassword", string(secret))
}

func TestUnmaskFormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "empty string", token: ""},
		{name: "shorter than prefix", token: "MAS"},
		{name: "prefix only", token: "MASK-"},
		{name: "missing prefix", token: "1234;12345678;100"},
		{name: "lowercase prefix", token: "mask-1234;12345678;100"},
		{name: "one field", token: "MASK-abcdef"},
		{name: "two fields", token: "MASK-abcdef;12345678"},
		{name: "four fields", token: "MASK-abcdef;12345678;100;extra"},
		{name: "trailing separator", token: "MASK-abcdef;12345678;100;"},
		{name: "non-numeric iteration", token: "MASK-abcdef;12345678;abc"},
		{name: "empty iteration", token: "MASK-abcdef;12345678;"},
		{name: "zero iteration", token: "MASK-abcdef;12345678;0"},
		{name: "negative iteration", token: "MASK-abcdef;12345678;-1"},
		{name: "iteration above int32", token: "MASK-abcdef;12345678;2147483648"},
		{name: "iteration at int64 max", token: "MASK-abc;12345678;9223372036854775807"},
		{name: "short salt", token: "MASK-abcdef;1234;100"},
		{name: "bad ciphertext digit", token: "MASK-ab+def;12345678;100"},
		{name: "empty ciphertext", token: "MASK-;12345678;100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmask(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)
			assert.Contains(t, err.Error(), "wrong masked password format")
		})
	}
}

func TestRestoreLeadingZeros(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, restoreLeadingZeros([]byte{1}))
	assert.Len(t, restoreLeadingZeros(make([]byte, 15)), 16)

	block := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, block, restoreLeadingZeros(block))
}

func TestIsMasked(t *testing.T) {
	assert.True(t, IsMasked("MASK-abc;12345678;1"))
	assert.False(t, IsMasked("plain-password"))
	assert.False(t, IsMasked(""))
}

func TestRandomSalt(t *testing.T) {
	a, err := RandomSalt()
	require.NoError(t, err)
	b, err := RandomSalt()
	require.NoError(t, err)

	assert.Len(t, a, 8)
	assert.Len(t, b, 8)
	for _, r := range a {
		assert.Contains(t, saltAlphabet, string(r))
	}

	token, err := Mask([]byte("secret"), a, 5)
	require.NoError(t, err)
	got, err := Unmask(token)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(got))
}
