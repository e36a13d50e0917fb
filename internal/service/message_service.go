package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/events"
	"github.com/shinyyama/marketplace-backend/internal/logging"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

const (
	MaxMessageLength = 4000
	previewLength    = 80
)

// MessageView is a message with the sender's display fields resolved.
type MessageView struct {
	model.Message
	SenderName      string
	SenderAvatarURL *string
}

type MessageService interface {
	List(ctx context.Context, convID uint64) ([]MessageView, error)
	Send(ctx context.Context, convID uint64, senderUID, body string) (*MessageView, error)
	MarkRead(ctx context.Context, convID uint64, readerUID string) (int64, error)
	Delete(ctx context.Context, convID, msgID uint64, requesterUID string) error
	UnreadCount(ctx context.Context, convID uint64, uid string) (int64, error)
}

type messageService struct {
	convs  ConversationService
	msgs   repository.MessageRepository
	dir    directory.Directory
	notify NotificationService
	bus    events.Publisher
	now    func() time.Time
}

type MessageServiceOption func(*messageService)

// WithClock overrides the time source used to stamp new messages.
func WithClock(now func() time.Time) MessageServiceOption {
	return func(s *messageService) { s.now = now }
}

func NewMessageService(convs ConversationService, msgs repository.MessageRepository, dir directory.Directory, notify NotificationService, bus events.Publisher, opts ...MessageServiceOption) MessageService {
	s := &messageService{
		convs:  convs,
		msgs:   msgs,
		dir:    dir,
		notify: notify,
		bus:    bus,
		now:    time.Now,
	}
	if s.bus == nil {
		s.bus = events.Noop{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *messageService) List(ctx context.Context, convID uint64) ([]MessageView, error) {
	msgs, err := s.msgs.ListByConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	senders := make([]string, 0, 2)
	for _, m := range msgs {
		senders = append(senders, m.SenderUID)
	}
	profiles, err := s.dir.Profiles(ctx, senders)
	if err != nil {
		return nil, err
	}
	out := make([]MessageView, len(msgs))
	for i, m := range msgs {
		out[i] = view(m, profiles)
	}
	return out, nil
}

func (s *messageService) Send(ctx context.Context, convID uint64, senderUID, body string) (*MessageView, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, fmt.Errorf("%w: body exceeds %d characters", ErrInvalidInput, MaxMessageLength)
	}
	cv, err := s.convs.Authorize(ctx, convID, senderUID)
	if err != nil {
		return nil, err
	}

	msg := model.Message{
		ConversationID: cv.ID,
		SenderUID:      senderUID,
		Body:           body,
		IsRead:         false,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.msgs.Create(ctx, &msg); err != nil {
		return nil, err
	}

	lg := logging.Ctx(ctx)
	if err := s.convs.RecordLastMessage(ctx, cv.ID, body, msg.CreatedAt); err != nil {
		lg.Warn().Err(err).
			Uint64(logging.FieldConversationID, cv.ID).
			Uint64(logging.FieldMessageID, msg.ID).
			Msg("last message preview not updated")
	}

	profiles, err := s.dir.Profiles(ctx, []string{senderUID})
	if err != nil {
		lg.Warn().Err(err).Str(logging.FieldUID, senderUID).Msg("sender profile lookup failed")
		profiles = nil
	}
	v := view(msg, profiles)

	if other := cv.Counterpart(senderUID); other != "" {
		name := v.SenderName
		if name == "" {
			name = senderUID
		}
		convRef := cv.ID
		s.notify.Notify(ctx, other, model.NotificationTypeChatMessage,
			fmt.Sprintf("New message from %s", name), preview(body), cv.ProductID, &convRef)
	}
	s.publish(ctx, events.TypeMessageCreated, cv.ID, messagePayload(v))
	return &v, nil
}

func (s *messageService) MarkRead(ctx context.Context, convID uint64, readerUID string) (int64, error) {
	cv, err := s.convs.Authorize(ctx, convID, readerUID)
	if err != nil {
		return 0, err
	}
	n, err := s.msgs.MarkReadFor(ctx, cv.ID, readerUID)
	if err != nil {
		return 0, err
	}
	if err := s.notify.MarkByConversation(ctx, readerUID, cv.ID); err != nil {
		lg := logging.Ctx(ctx)
		lg.Warn().Err(err).Uint64(logging.FieldConversationID, cv.ID).Msg("notification mark read failed")
	}
	if n > 0 {
		s.publish(ctx, events.TypeConversationRead, cv.ID, map[string]interface{}{
			"readerUid": readerUID,
			"updated":   n,
		})
	}
	return n, nil
}

func (s *messageService) Delete(ctx context.Context, convID, msgID uint64, requesterUID string) error {
	msg, err := s.msgs.FindByID(ctx, msgID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if msg.ConversationID != convID {
		return ErrScopeMismatch
	}
	if msg.SenderUID != requesterUID {
		return fmt.Errorf("%w: only the author can delete a message", ErrForbidden)
	}
	n, err := s.msgs.DeleteOwned(ctx, convID, msgID, requesterUID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.publish(ctx, events.TypeMessageDeleted, convID, map[string]interface{}{"id": msgID})
	return nil
}

func (s *messageService) UnreadCount(ctx context.Context, convID uint64, uid string) (int64, error) {
	return s.msgs.CountUnread(ctx, convID, uid)
}

func (s *messageService) publish(ctx context.Context, typ string, convID uint64, payload interface{}) {
	lg := logging.Ctx(ctx)
	ev, err := events.NewEvent(typ, convID, payload)
	if err != nil {
		lg.Warn().Err(err).Str("event", typ).Msg("event not built")
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	if err := s.bus.Publish(ctx, ev); err != nil {
		lg.Warn().Err(err).Str("event", typ).Uint64(logging.FieldConversationID, convID).Msg("event not published")
	}
}

func view(m model.Message, profiles map[string]directory.Profile) MessageView {
	v := MessageView{Message: m}
	if p, ok := profiles[m.SenderUID]; ok {
		v.SenderName = p.DisplayName
		v.SenderAvatarURL = p.AvatarURL
	}
	return v
}

func messagePayload(v MessageView) map[string]interface{} {
	return map[string]interface{}{
		"id":              v.ID,
		"conversationId":  v.ConversationID,
		"senderUid":       v.SenderUID,
		"senderName":      v.SenderName,
		"senderAvatarUrl": v.SenderAvatarURL,
		"body":            v.Body,
		"isRead":          v.IsRead,
		"createdAt":       v.CreatedAt,
	}
}

func preview(body string) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= previewLength {
		return body
	}
	r := []rune(body)
	return string(r[:previewLength]) + "…"
}
