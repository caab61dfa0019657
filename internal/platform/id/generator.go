// Package id issues opaque tokens for externally visible references, such
// as the correlation ids stamped on analysis requests.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

type Generator interface {
	NewID() string
}

// RandomGenerator issues 32-character hex tokens. Tokens carry no embedded
// structure, so callers cannot be tempted to parse them.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() string {
	buf := make([]byte, 16)
	// crypto/rand.Read never returns an error.
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
