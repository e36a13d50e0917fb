package repository

import (
	"context"
	"testing"

	"github.com/shinyyama/marketplace-backend/internal/dbtest"
	"github.com/shinyyama/marketplace-backend/internal/model"
)

func seedThread(t *testing.T, msgs MessageRepository, convID uint64, senders ...string) []model.Message {
	t.Helper()
	out := make([]model.Message, 0, len(senders))
	for i, s := range senders {
		m := model.Message{ConversationID: convID, SenderUID: s, Body: "m" + string(rune('a'+i))}
		if err := msgs.Create(context.Background(), &m); err != nil {
			t.Fatalf("create message: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestMessageListOrderAndScope(t *testing.T) {
	ctx := context.Background()
	msgs := NewMessageRepository(dbtest.Open(t))

	seedThread(t, msgs, 1, "10", "20", "10")
	seedThread(t, msgs, 2, "30")

	list, err := msgs.ListByConversation(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1], list[i]
		if cur.CreatedAt.Before(prev.CreatedAt) || (cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID < prev.ID) {
			t.Fatalf("messages out of order at %d", i)
		}
		if cur.ConversationID != 1 {
			t.Fatalf("message from another conversation leaked: %+v", cur)
		}
	}
}

func TestMessageMarkReadFor(t *testing.T) {
	ctx := context.Background()
	msgs := NewMessageRepository(dbtest.Open(t))
	seedThread(t, msgs, 1, "10", "20", "20")

	n, err := msgs.MarkReadFor(ctx, 1, "10")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updated, got %d", n)
	}
	n, err = msgs.MarkReadFor(ctx, 1, "10")
	if err != nil || n != 0 {
		t.Fatalf("second mark read: n=%d err=%v", n, err)
	}

	list, _ := msgs.ListByConversation(ctx, 1)
	for _, m := range list {
		want := m.SenderUID == "20"
		if m.IsRead != want {
			t.Fatalf("message %d sender=%s isRead=%v", m.ID, m.SenderUID, m.IsRead)
		}
	}
}

func TestMessageDeleteOwned(t *testing.T) {
	ctx := context.Background()
	msgs := NewMessageRepository(dbtest.Open(t))
	seeded := seedThread(t, msgs, 1, "10")
	id := seeded[0].ID

	tests := []struct {
		name   string
		conv   uint64
		sender string
		want   int64
	}{
		{"wrong sender", 1, "20", 0},
		{"wrong conversation", 2, "10", 0},
		{"owner", 1, "10", 1},
		{"already gone", 1, "10", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := msgs.DeleteOwned(ctx, tt.conv, id, tt.sender)
			if err != nil {
				t.Fatalf("delete: %v", err)
			}
			if got != tt.want {
				t.Fatalf("rows=%d want %d", got, tt.want)
			}
		})
	}
	if _, err := msgs.FindByID(ctx, id); !IsNotFound(err) {
		t.Fatalf("expected message to be gone, got %v", err)
	}
}

func TestMessageCountUnread(t *testing.T) {
	ctx := context.Background()
	msgs := NewMessageRepository(dbtest.Open(t))
	seedThread(t, msgs, 1, "20", "20", "10")
	seedThread(t, msgs, 2, "30")
	seedThread(t, msgs, 3, "10")

	n, err := msgs.CountUnread(ctx, 1, "10")
	if err != nil || n != 2 {
		t.Fatalf("CountUnread=%d err=%v", n, err)
	}

	byConv, err := msgs.CountUnreadByConversation(ctx, "10", []uint64{1, 2, 3})
	if err != nil {
		t.Fatalf("CountUnreadByConversation: %v", err)
	}
	if byConv[1] != 2 || byConv[2] != 1 || byConv[3] != 0 {
		t.Fatalf("unexpected counts: %v", byConv)
	}

	empty, err := msgs.CountUnreadByConversation(ctx, "10", nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map, got %v err=%v", empty, err)
	}
}
