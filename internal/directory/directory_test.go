package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/marketplace-backend/internal/dbtest"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

type fakeSource struct {
	users map[string]*model.User
	calls int
}

func (f *fakeSource) LookupUser(_ context.Context, uid string) (*model.User, error) {
	f.calls++
	return f.users[uid], nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]Profile
	gets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string]Profile{}} }

func (m *mapCache) Get(_ context.Context, uid string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	p, ok := m.data[uid]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &p, nil
}

func (m *mapCache) Set(_ context.Context, p Profile, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[p.UID] = p
	return nil
}

func (m *mapCache) Delete(_ context.Context, uids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uid := range uids {
		delete(m.data, uid)
	}
	return nil
}

func newStore(t *testing.T, source UserSource) (*Store, repository.UserRepository, repository.ProductRepository) {
	t.Helper()
	conn := dbtest.Open(t)
	users := repository.NewUserRepository(conn)
	products := repository.NewProductRepository(conn)
	ctx := context.Background()
	for _, u := range []model.User{{UID: "10", DisplayName: "Buyer"}, {UID: "20", DisplayName: "Seller"}} {
		u := u
		if err := users.Upsert(ctx, &u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return NewStore(users, products, source), users, products
}

func TestStoreUserAndProductLookups(t *testing.T) {
	ctx := context.Background()
	store, _, products := newStore(t, nil)

	p := model.Product{SellerUID: "20", Title: "Chair", Description: "oak", Price: 3000}
	if err := products.Create(ctx, &p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if ok, err := store.UserExists(ctx, "10"); err != nil || !ok {
		t.Fatalf("UserExists(10)=%v err=%v", ok, err)
	}
	if ok, _ := store.UserExists(ctx, "99"); ok {
		t.Fatalf("unknown user reported as existing")
	}
	if ok, _ := store.ProductExists(ctx, p.ID); !ok {
		t.Fatalf("product should exist")
	}
	seller, err := store.ProductSeller(ctx, p.ID)
	if err != nil || seller != "20" {
		t.Fatalf("ProductSeller=%q err=%v", seller, err)
	}
	if _, err := store.ProductSeller(ctx, p.ID+1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	profiles, err := store.Profiles(ctx, []string{"10", "20", "10", "99", ""})
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(profiles) != 2 || profiles["20"].DisplayName != "Seller" {
		t.Fatalf("unexpected profiles: %v", profiles)
	}
}

func TestStoreImportsFromSource(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{users: map[string]*model.User{"30": {UID: "30", DisplayName: "Newcomer", Role: model.RoleUser}}}
	store, users, _ := newStore(t, src)

	ok, err := store.UserExists(ctx, "30")
	if err != nil || !ok {
		t.Fatalf("UserExists(30)=%v err=%v", ok, err)
	}
	if _, err := users.FindByUID(ctx, "30"); err != nil {
		t.Fatalf("imported user not stored: %v", err)
	}
	// Now served from the table.
	before := src.calls
	if ok, _ := store.UserExists(ctx, "30"); !ok || src.calls != before {
		t.Fatalf("expected local hit, calls=%d before=%d", src.calls, before)
	}
	if ok, _ := store.UserExists(ctx, "31"); ok {
		t.Fatalf("unknown upstream user reported as existing")
	}
}

func TestCachedProfiles(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newStore(t, nil)
	cache := newMapCache()
	d := NewCached(store, cache, time.Minute)

	first, err := d.Profiles(ctx, []string{"10", "20"})
	if err != nil || len(first) != 2 {
		t.Fatalf("Profiles=%v err=%v", first, err)
	}
	if len(cache.data) != 2 {
		t.Fatalf("profiles were not cached: %v", cache.data)
	}

	// Change the cached copy; the second read must come from the cache.
	cache.data["10"] = Profile{UID: "10", DisplayName: "cached"}
	second, _ := d.Profiles(ctx, []string{"10"})
	if second["10"].DisplayName != "cached" {
		t.Fatalf("expected cached profile, got %v", second["10"])
	}
	if ok, _ := d.UserExists(ctx, "10"); !ok {
		t.Fatalf("cached user should exist")
	}
	if ok, _ := d.UserExists(ctx, "99"); ok {
		t.Fatalf("unknown user should not exist")
	}
}

func TestCachedDegradesWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newStore(t, nil)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	d := NewCached(store, NewRedisProfileCache(client, "test"), time.Minute)

	profiles, err := d.Profiles(ctx, []string{"10"})
	if err != nil {
		t.Fatalf("Profiles should fall back to the store: %v", err)
	}
	if profiles["10"].DisplayName != "Buyer" {
		t.Fatalf("unexpected profile: %v", profiles)
	}
	if ok, err := d.UserExists(ctx, "20"); err != nil || !ok {
		t.Fatalf("UserExists=%v err=%v", ok, err)
	}
}
