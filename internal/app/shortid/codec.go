// Package shortid generates and validates the public identifiers of short links.
package shortid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/sifan077/curto/internal/app/route"
)

const (
	// Alphabet is the set of symbols allowed in a short identifier.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// DefaultLength is the length of generated identifiers.
	DefaultLength = 5

	// MaxGenerateAttempts bounds how many candidates GenerateID draws before
	// giving up.
	MaxGenerateAttempts = 5
)

// Codec generates random identifiers and validates user supplied ones against
// the alphabet and a set of reserved route segments.
type Codec struct {
	length   int
	space    uint64
	reserved map[string]struct{}
}

// New returns a Codec that reserves the first segment of every given route
// path.
func New(paths ...string) *Codec {
	reserved := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		reserved[strings.ToLower(route.FirstSegment(p))] = struct{}{}
	}

	space := uint64(1)
	for i := 0; i < DefaultLength; i++ {
		space *= uint64(len(Alphabet))
	}

	return &Codec{
		length:   DefaultLength,
		space:    space,
		reserved: reserved,
	}
}

// Default returns a Codec reserving every route served by curto.
func Default() *Codec {
	return New(route.Paths()...)
}

// GenerateID returns a fresh identifier that passes ValidateID.
//
// It panics if MaxGenerateAttempts candidates in a row are rejected, which
// with this alphabet and length only happens if the reserved set or the
// random source is broken.
func (c *Codec) GenerateID() string {
	for attempt := 0; attempt < MaxGenerateAttempts; attempt++ {
		id := c.encode(randomUint64() % c.space)
		if c.ValidateID(id) {
			return id
		}
	}
	panic(fmt.Sprintf("shortid: no valid identifier after %d attempts", MaxGenerateAttempts))
}

// ValidateID reports whether id is non-empty, only uses Alphabet and does not
// match a reserved route segment, ignoring case.
func (c *Codec) ValidateID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(Alphabet, id[i]) < 0 {
			return false
		}
	}
	_, taken := c.reserved[strings.ToLower(id)]
	return !taken
}

// IsReserved reports whether segment collides with a route, ignoring case.
func (c *Codec) IsReserved(segment string) bool {
	_, ok := c.reserved[strings.ToLower(segment)]
	return ok
}

// encode writes n in base len(Alphabet), left padded to the codec length.
func (c *Codec) encode(n uint64) string {
	base := uint64(len(Alphabet))
	buf := make([]byte, c.length)
	for i := c.length - 1; i >= 0; i-- {
		buf[i] = Alphabet[n%base]
		n /= base
	}
	return string(buf)
}

func randomUint64() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("shortid: crypto/rand failed: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}
