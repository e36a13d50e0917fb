package repository

import (
	"context"
	"testing"

	"github.com/shinyyama/marketplace-backend/internal/dbtest"
	"github.com/shinyyama/marketplace-backend/internal/model"
)

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(dbtest.Open(t))

	conv := uint64(7)
	other := uint64(8)
	for _, n := range []model.Notification{
		{UserUID: "10", Type: model.NotificationTypeChatMessage, Title: "a", ConversationID: &conv},
		{UserUID: "10", Type: model.NotificationTypeChatMessage, Title: "b", ConversationID: &other},
		{UserUID: "10", Type: model.NotificationTypeAdminNotice, Title: "c"},
		{UserUID: "20", Type: model.NotificationTypeChatMessage, Title: "d", ConversationID: &conv},
	} {
		n := n
		if err := repo.Create(ctx, &n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if cnt, _ := repo.CountUnread(ctx, "10"); cnt != 3 {
		t.Fatalf("unread=%d want 3", cnt)
	}

	n, err := repo.MarkByConversation(ctx, "10", conv)
	if err != nil || n != 1 {
		t.Fatalf("MarkByConversation n=%d err=%v", n, err)
	}
	unread, err := repo.ListByUser(ctx, "10", true, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(unread))
	}

	n, err = repo.MarkAllRead(ctx, "10")
	if err != nil || n != 2 {
		t.Fatalf("MarkAllRead n=%d err=%v", n, err)
	}
	if cnt, _ := repo.CountUnread(ctx, "10"); cnt != 0 {
		t.Fatalf("unread=%d after mark all", cnt)
	}
	// Other users are untouched.
	if cnt, _ := repo.CountUnread(ctx, "20"); cnt != 1 {
		t.Fatalf("user 20 unread=%d want 1", cnt)
	}
}
