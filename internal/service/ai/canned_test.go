package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
)

func TestCannedResponderPicksRule(t *testing.T) {
	r := NewCannedResponder()
	ctx := context.Background()

	cases := map[string]string{
		"track my package":           "bill of lading",
		"How much does it COST?":     "custom quote",
		"need customs clearance":     "customs brokers",
		"sea shipping to Hamburg":    "multimodal freight",
		"hi":                         "Welcome to",
		"tell me a joke":             "would you like us to contact you",
		"shipping rates from Mumbai": "custom quote",
	}
	for in, want := range cases {
		got, err := r.Reply(ctx, "s", nil, in)
		require.NoError(t, err)
		assert.Contains(t, got, want, in)
	}
}

func TestContainsWordRespectsBoundaries(t *testing.T) {
	assert.True(t, containsWord("hi there", "hi"))
	assert.False(t, containsWord("shipping", "hi"))
	assert.True(t, containsWord("where is it", "where is"))
	assert.True(t, containsWord("hs code?", "hs code"))
}

func TestBuildHistoryMessagesKeepsRecentTurns(t *testing.T) {
	var messages []chat.Message
	for i := 0; i < historyLimit+5; i++ {
		messages = append(messages, chat.NewMessage(chat.RoleUser, strings.Repeat("x", i+1)))
	}
	messages = append(messages, chat.NewMessage(chat.RoleSystem, "ignored"))

	history := buildHistoryMessages(messages)
	require.Len(t, history, historyLimit-1)
	assert.Equal(t, strings.Repeat("x", 7), history[0].Content)
}

func TestSystemPromptMentionsCompany(t *testing.T) {
	assert.Contains(t, SystemPrompt(), CompanyName)
}
