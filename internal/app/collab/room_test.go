package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coedit/internal/app/user"
)

func TestStripMention(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		username string
		want     string
	}{
		{"leading mention", "@alice hello", "alice", "hello"},
		{"mention only", "@alice", "alice", ""},
		{"mention with punctuation after", "@alice, hi", "alice", ", hi"},
		{"no mention", "hello @alice", "alice", "hello @alice"},
		{"different user mentioned", "@bob hello", "alice", "@bob hello"},
		{"prefix of a longer name", "@alicette hello", "alice", "@alicette hello"},
		{"underscore continues the word", "@alice_ hello", "alice", "@alice_ hello"},
		{"empty username untouched", "@ hello", "", "@ hello"},
		{"whitespace trimmed", "@alice   hello  ", "alice", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMention(tt.content, tt.username))
		})
	}
}

func TestRoomAuthorize(t *testing.T) {
	open := newRoom("r1", "Open", "")
	assert.True(t, open.authorize(""))
	assert.True(t, open.authorize("anything"))

	gated := newRoom("r2", "Gated", "hunter2")
	assert.True(t, gated.authorize("hunter2"))
	assert.False(t, gated.authorize(""))
	assert.False(t, gated.authorize("Hunter2"), "password match is exact")
}

func TestRoomRemove_UnknownConnection(t *testing.T) {
	r := newRoom("r1", "Planning", "")
	member := &fakeConn{}
	r.admit(member, user.User{ID: "u1", Username: "u1"})

	_, remaining, ok := r.remove(&fakeConn{})
	assert.False(t, ok)
	assert.Equal(t, 1, remaining)
	assert.Zero(t, member.eventCount(), "removing a non-member broadcasts nothing")
}
