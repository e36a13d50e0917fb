package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/logging"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

type NotificationService interface {
	Notify(ctx context.Context, userUID, typ, title, body string, productID, convID *uint64)
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) (int64, error)
	MarkByConversation(ctx context.Context, userUID string, convID uint64) error
	SendAdminNotice(ctx context.Context, recipientUID, title, body string, imageURL *string) (*model.Notification, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	dir  directory.Directory
}

func NewNotificationService(repo repository.NotificationRepository, dir directory.Directory) NotificationService {
	return &notificationService{repo: repo, dir: dir}
}

// Notify is best-effort; failures are logged and never reach the caller.
func (s *notificationService) Notify(ctx context.Context, userUID, typ, title, body string, productID, convID *uint64) {
	if userUID == "" || typ == "" {
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	n := &model.Notification{
		UserUID:        userUID,
		Type:           typ,
		Title:          title,
		Body:           body,
		ProductID:      productID,
		ConversationID: convID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		lg := logging.Ctx(ctx)
		lg.Warn().Err(err).Str(logging.FieldUID, userUID).Str("type", typ).Msg("notify failed")
	}
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) (int64, error) {
	if userUID == "" {
		return 0, nil
	}
	return s.repo.MarkAllRead(ctx, userUID)
}

func (s *notificationService) MarkByConversation(ctx context.Context, userUID string, convID uint64) error {
	if userUID == "" || convID == 0 {
		return nil
	}
	_, err := s.repo.MarkByConversation(ctx, userUID, convID)
	return err
}

func (s *notificationService) SendAdminNotice(ctx context.Context, recipientUID, title, body string, imageURL *string) (*model.Notification, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrInvalidInput)
	}
	if imageURL != nil && strings.TrimSpace(*imageURL) == "" {
		imageURL = nil
	}
	ok, err := s.dir.UserExists(ctx, recipientUID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown user %s", ErrInvalidParticipant, recipientUID)
	}
	n := &model.Notification{
		UserUID:  recipientUID,
		Type:     model.NotificationTypeAdminNotice,
		Title:    title,
		Body:     body,
		ImageURL: imageURL,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
