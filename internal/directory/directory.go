// Package directory answers "does this user/product exist" and "what does
// this user look like" for the chat services.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shinyyama/marketplace-backend/internal/logging"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

type Profile struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

type Directory interface {
	UserExists(ctx context.Context, uid string) (bool, error)
	ProductExists(ctx context.Context, productID uint64) (bool, error)
	// ProductSeller returns the seller uid or ErrProductNotFound.
	ProductSeller(ctx context.Context, productID uint64) (string, error)
	// Profiles resolves as many uids as it can; unknown uids are absent
	// from the map.
	Profiles(ctx context.Context, uids []string) (map[string]Profile, error)
}

// UserSource is an upstream account registry consulted when a uid is not
// yet in the users table. It returns (nil, nil) for unknown uids.
type UserSource interface {
	LookupUser(ctx context.Context, uid string) (*model.User, error)
}

type Store struct {
	users    repository.UserRepository
	products repository.ProductRepository
	source   UserSource
}

func NewStore(users repository.UserRepository, products repository.ProductRepository, source UserSource) *Store {
	return &Store{users: users, products: products, source: source}
}

func (s *Store) UserExists(ctx context.Context, uid string) (bool, error) {
	ok, err := s.users.Exists(ctx, uid)
	if err != nil || ok || uid == "" {
		return ok, err
	}
	u, err := s.importUser(ctx, uid)
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

func (s *Store) ProductExists(ctx context.Context, productID uint64) (bool, error) {
	return s.products.Exists(ctx, productID)
}

func (s *Store) ProductSeller(ctx context.Context, productID uint64) (string, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrProductNotFound
		}
		return "", err
	}
	return p.SellerUID, nil
}

func (s *Store) Profiles(ctx context.Context, uids []string) (map[string]Profile, error) {
	uids = dedupe(uids)
	out := make(map[string]Profile, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	users, err := s.users.FindByUIDs(ctx, uids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.UID] = profileOf(&u)
	}
	for _, uid := range uids {
		if _, ok := out[uid]; ok {
			continue
		}
		u, err := s.importUser(ctx, uid)
		if err != nil {
			lg := logging.Ctx(ctx)
			lg.Warn().Err(err).Str(logging.FieldUID, uid).Msg("directory: upstream lookup failed")
			continue
		}
		if u != nil {
			out[uid] = profileOf(u)
		}
	}
	return out, nil
}

// importUser pulls uid from the upstream source and records it locally.
func (s *Store) importUser(ctx context.Context, uid string) (*model.User, error) {
	if s.source == nil {
		return nil, nil
	}
	u, err := s.source.LookupUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", uid, err)
	}
	if u == nil {
		return nil, nil
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func profileOf(u *model.User) Profile {
	return Profile{UID: u.UID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

func dedupe(uids []string) []string {
	seen := make(map[string]struct{}, len(uids))
	out := make([]string, 0, len(uids))
	for _, uid := range uids {
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}
