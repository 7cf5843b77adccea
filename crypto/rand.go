package crypto

import (
	"crypto/rand"
	"math/big"
)

// AlphanumericAlphabet is URL safe without escaping.
const AlphanumericAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomString returns a cryptographically random string of the given length
// drawn uniformly from alphabet. It panics on an empty alphabet or if the
// system random source fails.
func RandomString(length int, alphabet string) string {
	if alphabet == "" {
		panic("crypto: empty alphabet")
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto: random source failed: " + err.Error())
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
