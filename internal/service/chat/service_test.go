package chat_test

import (
	"context"
	"testing"

	model "github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
	chat "github.com/zhouzirui/tgl-chat/backend/internal/service/chat"
)

func TestServiceBindReusesConversation(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	first, created, err := svc.Bind(ctx, "session_1_abc")
	if err != nil {
		t.Fatalf("Bind err: %v", err)
	}
	if !created {
		t.Fatal("expected first bind to create a conversation")
	}

	second, created, err := svc.Bind(ctx, "session_1_abc")
	if err != nil {
		t.Fatalf("Bind err: %v", err)
	}
	if created {
		t.Fatal("expected second bind to reuse the conversation")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("conversation replaced: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestServiceBindRequiresSession(t *testing.T) {
	svc := chat.NewService()
	if _, _, err := svc.Bind(context.Background(), ""); err != chat.ErrSessionRequired {
		t.Fatalf("expected ErrSessionRequired, got %v", err)
	}
}

func TestServiceTranscriptOrder(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	if _, _, err := svc.Bind(ctx, "s"); err != nil {
		t.Fatalf("Bind err: %v", err)
	}

	for _, msg := range []model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	} {
		if err := svc.SaveMessage(ctx, "s", msg); err != nil {
			t.Fatalf("SaveMessage err: %v", err)
		}
	}

	transcript, err := svc.LoadTranscript(ctx, "s")
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(transcript) != 2 || transcript[0].Content != "hi" || transcript[1].Content != "hello" {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
	if transcript[0].ID == "" || transcript[0].Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp to be stamped: %+v", transcript[0])
	}
}

func TestServiceUnknownSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	if _, err := svc.GetConversation(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
	if err := svc.SaveMessage(ctx, "missing", model.Message{Content: "x"}); err != chat.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
