package directory

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/shinyyama/marketplace-backend/internal/model"
)

// FirebaseUsers resolves uids against Firebase Authentication.
type FirebaseUsers struct {
	client *auth.Client
}

func NewFirebaseUsers(client *auth.Client) *FirebaseUsers {
	return &FirebaseUsers{client: client}
}

func (f *FirebaseUsers) LookupUser(ctx context.Context, uid string) (*model.User, error) {
	rec, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	u := &model.User{UID: rec.UID, DisplayName: rec.DisplayName, Role: model.RoleUser}
	if u.DisplayName == "" {
		u.DisplayName = rec.Email
	}
	if rec.PhotoURL != "" {
		photo := rec.PhotoURL
		u.AvatarURL = &photo
	}
	if role, ok := rec.CustomClaims["role"].(string); ok && role != "" {
		u.Role = role
	}
	return u, nil
}
