package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/dbtest"
	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/events"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

type recordingBus struct {
	mu     sync.Mutex
	events []*events.Event
}

func (b *recordingBus) Publish(_ context.Context, ev *events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	convs   ConversationService
	msgs    MessageService
	notifs  NotificationService
	bus     *recordingBus
	product model.Product
	clock   *fakeClock
	users   repository.UserRepository
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	conn := dbtest.Open(t)

	users := repository.NewUserRepository(conn)
	products := repository.NewProductRepository(conn)
	for _, u := range []model.User{
		{UID: "10", DisplayName: "Buyer"},
		{UID: "20", DisplayName: "Seller"},
		{UID: "30", DisplayName: "Outsider"},
	} {
		u := u
		if err := users.Upsert(ctx, &u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	p := model.Product{SellerUID: "20", Title: "Bike", Description: "city bike", Price: 15000}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	dir := directory.NewStore(users, products, nil)
	convRepo := repository.NewConversationRepository(conn)
	msgRepo := repository.NewMessageRepository(conn)
	notifRepo := repository.NewNotificationRepository(conn)
	bus := &recordingBus{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	convs := NewConversationService(convRepo, msgRepo, dir)
	notifs := NewNotificationService(notifRepo, dir)
	msgs := NewMessageService(convs, msgRepo, dir, notifs, bus, WithClock(clock.Now))
	return &fixture{
		convs:   convs,
		msgs:    msgs,
		notifs:  notifs,
		bus:     bus,
		product: p,
		clock:   clock,
		users:   users,
	}
}

func (f *fixture) mustConversation(t *testing.T, a, b string, productID *uint64) *model.Conversation {
	t.Helper()
	cv, _, err := f.convs.CreateOrGet(context.Background(), a, b, productID)
	if err != nil {
		t.Fatalf("CreateOrGet(%s,%s): %v", a, b, err)
	}
	return cv
}

func (f *fixture) mustSend(t *testing.T, convID uint64, sender, body string) *MessageView {
	t.Helper()
	m, err := f.msgs.Send(context.Background(), convID, sender, body)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	return m
}

func (f *fixture) seedUsers(t *testing.T, uids ...string) {
	t.Helper()
	for _, uid := range uids {
		if err := f.users.Upsert(context.Background(), &model.User{UID: uid, DisplayName: uid}); err != nil {
			t.Fatalf("seed user %s: %v", uid, err)
		}
	}
}
