package chatclient

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var sessionPattern = regexp.MustCompile(`^session_\d+_[0-9a-f]{9}$`)

func TestNewSessionFormat(t *testing.T) {
	s := NewSession()
	assert.Regexp(t, sessionPattern, s.ID)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewSessionIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewSession().ID
		_, dup := seen[id]
		assert.False(t, dup, id)
		seen[id] = struct{}{}
	}
}

func TestNewManagerCreatesSessionWhenNil(t *testing.T) {
	m := NewManager("ws://localhost:5000/ws/chat", nil)
	assert.Regexp(t, sessionPattern, m.Session().ID)
	assert.Equal(t, StateIdle, m.Status().State)
}
