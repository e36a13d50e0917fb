package repository

import (
	"context"
	"testing"

	"github.com/shinyyama/marketplace-backend/internal/dbtest"
	"github.com/shinyyama/marketplace-backend/internal/model"
)

func TestUserUpsertKeepsRole(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(dbtest.Open(t))

	if err := repo.Upsert(ctx, &model.User{UID: "10", DisplayName: "Aki", Role: model.RoleAdmin}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, &model.User{UID: "10", DisplayName: "Aki K."}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	u, err := repo.FindByUID(ctx, "10")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.DisplayName != "Aki K." || u.Role != model.RoleAdmin {
		t.Fatalf("unexpected user: %+v", u)
	}

	tests := []struct {
		uid  string
		want bool
	}{
		{"10", true},
		{"11", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := repo.Exists(ctx, tt.uid)
		if err != nil || got != tt.want {
			t.Fatalf("Exists(%q)=%v err=%v", tt.uid, got, err)
		}
	}

	users, err := repo.FindByUIDs(ctx, []string{"10", "11"})
	if err != nil || len(users) != 1 {
		t.Fatalf("FindByUIDs=%v err=%v", users, err)
	}
}

func TestProductExists(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(dbtest.Open(t))
	p := model.Product{SellerUID: "20", Title: "Lamp", Description: "desk lamp", Price: 1200}
	if err := repo.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := repo.Exists(ctx, p.ID); err != nil || !ok {
		t.Fatalf("Exists=%v err=%v", ok, err)
	}
	if ok, _ := repo.Exists(ctx, p.ID+100); ok {
		t.Fatalf("unexpected product")
	}
	got, err := repo.FindByTitle(ctx, "20", "Lamp")
	if err != nil || got.ID != p.ID {
		t.Fatalf("FindByTitle=%v err=%v", got, err)
	}
}
