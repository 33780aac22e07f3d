package shortid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sifan077/curto/internal/app/route"
)

func TestValidateID(t *testing.T) {
	c := Default()

	invalid := []string{
		"",
		"/",
		"/abc",
		"abc-xyz",
		"😥",
		"héllo",
		route.Docs.String(),
		route.Health.String(),
		"health",
		"Health",
		"links",
		"lInKs",
		"docs",
		"METRICS",
		"create",
	}
	for _, id := range invalid {
		assert.False(t, c.ValidateID(id), "ValidateID(%q)", id)
	}

	valid := []string{"abc", "alkw13", "BAD", "0", "linksx", "Z9"}
	for _, id := range valid {
		assert.True(t, c.ValidateID(id), "ValidateID(%q)", id)
	}
}

func TestGenerateID(t *testing.T) {
	c := Default()

	for i := 0; i < 1000; i++ {
		id := c.GenerateID()
		assert.Len(t, id, DefaultLength)
		assert.True(t, c.ValidateID(id), "generated %q failed validation", id)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(Alphabet, r), "generated %q contains %q", id, string(r))
		}
	}
}

func TestGenerateIDIsNotConstant(t *testing.T) {
	c := Default()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		seen[c.GenerateID()] = struct{}{}
	}
	// 62^5 possibilities; a handful of collisions at most.
	assert.Greater(t, len(seen), 990)
}

func TestEncodePadsToLength(t *testing.T) {
	c := Default()
	assert.Equal(t, "00000", c.encode(0))
	assert.Equal(t, "0000Z", c.encode(61))
	assert.Equal(t, "00010", c.encode(62))
	assert.Equal(t, "ZZZZZ", c.encode(c.space-1))
}

func TestIsReserved(t *testing.T) {
	c := New("/links/:id", "/Health")
	assert.True(t, c.IsReserved("LINKS"))
	assert.True(t, c.IsReserved("health"))
	assert.False(t, c.IsReserved("docs"))
}

func TestTakenFilter(t *testing.T) {
	f := NewTakenFilter(1000, 0.01)
	assert.False(t, f.MaybeTaken("abc12"))

	f.Add("abc12")
	assert.True(t, f.MaybeTaken("abc12"))
}
