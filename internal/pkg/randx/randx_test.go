package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := MessageID()
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID("room-1"))
	assert.True(t, IsValidID("9b2e0a8c-7a34-4a1d-9f1f-0c3a1d2e3f4b"))
	assert.False(t, IsValidID(""))
	assert.False(t, IsValidID(strings.Repeat("x", MaxIDLength+1)))
	assert.False(t, IsValidID("bad\xff\xfe"))
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("Planning"))
	assert.True(t, IsValidName("日本語の部屋"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName(strings.Repeat("x", MaxNameLength+1)))
}
