package middleware

import (
	"context"
	"errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/shinyyama/marketplace-backend/internal/model"
)

type FirebaseVerifier struct {
	authClient *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{authClient: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	token, err := v.authClient.VerifyIDToken(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	role := model.RoleUser
	if r, ok := token.Claims["role"].(string); ok && r != "" {
		role = r
	}
	return &Identity{UID: token.UID, Role: role}, nil
}

func (v *FirebaseVerifier) Client() *auth.Client {
	return v.authClient
}
