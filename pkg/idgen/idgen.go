// Package idgen generates random short codes for links.
package idgen

import (
	"crypto/rand"
	"math/big"
)

// Alphabet contains the unreserved URL-safe characters codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// DefaultLength is the code length used by the service.
const DefaultLength = 7

// Generator produces short codes. Implementations are collision-oblivious;
// the caller is responsible for retrying on a storage conflict.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes from crypto/rand so they cannot be enumerated.
type RandomGenerator struct {
	length int
}

// NewRandomGenerator returns a generator producing codes of the given
// length, or DefaultLength when length is not positive.
func NewRandomGenerator(length int) *RandomGenerator {
	if length <= 0 {
		length = DefaultLength
	}
	return &RandomGenerator{length: length}
}

func (g *RandomGenerator) Generate() (string, error) {
	b := make([]byte, g.length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}
