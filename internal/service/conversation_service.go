package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

// ConversationSummary is a list row as seen by one participant.
type ConversationSummary struct {
	Conversation model.Conversation
	Counterpart  directory.Profile
	UnreadCount  int64
}

type ConversationService interface {
	ListForUser(ctx context.Context, uid string) ([]ConversationSummary, error)
	Get(ctx context.Context, id uint64) (*model.Conversation, error)
	// Authorize returns the conversation only if uid takes part in it.
	Authorize(ctx context.Context, id uint64, uid string) (*model.Conversation, error)
	// CreateOrGet returns the thread between requester and counterparty,
	// creating it with the requester as buyer when none exists.
	CreateOrGet(ctx context.Context, requesterUID, counterpartyUID string, productID *uint64) (*model.Conversation, bool, error)
	// CreateForProduct opens (or reopens) the thread with a product's seller.
	CreateForProduct(ctx context.Context, requesterUID string, productID uint64) (*model.Conversation, bool, error)
	RecordLastMessage(ctx context.Context, id uint64, text string, at time.Time) error
}

type conversationService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	dir      directory.Directory
}

func NewConversationService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, dir directory.Directory) ConversationService {
	return &conversationService{convRepo: convRepo, msgRepo: msgRepo, dir: dir}
}

func (s *conversationService) ListForUser(ctx context.Context, uid string) ([]ConversationSummary, error) {
	if uid == "" {
		return nil, nil
	}
	list, err := s.convRepo.FindByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]uint64, len(list))
	others := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
		others[i] = list[i].Counterpart(uid)
	}
	unread, err := s.msgRepo.CountUnreadByConversation(ctx, uid, ids)
	if err != nil {
		return nil, err
	}
	profiles, err := s.dir.Profiles(ctx, others)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, len(list))
	for i, cv := range list {
		other := others[i]
		p, ok := profiles[other]
		if !ok {
			p = directory.Profile{UID: other}
		}
		out[i] = ConversationSummary{Conversation: cv, Counterpart: p, UnreadCount: unread[cv.ID]}
	}
	return out, nil
}

func (s *conversationService) Get(ctx context.Context, id uint64) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cv, nil
}

func (s *conversationService) Authorize(ctx context.Context, id uint64, uid string) (*model.Conversation, error) {
	cv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cv.HasParticipant(uid) {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return cv, nil
}

func (s *conversationService) CreateOrGet(ctx context.Context, requesterUID, counterpartyUID string, productID *uint64) (*model.Conversation, bool, error) {
	if requesterUID == "" || counterpartyUID == "" || requesterUID == counterpartyUID {
		return nil, false, ErrInvalidParticipant
	}
	for _, uid := range []string{requesterUID, counterpartyUID} {
		ok, err := s.dir.UserExists(ctx, uid)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, fmt.Errorf("%w: unknown user %s", ErrInvalidParticipant, uid)
		}
	}
	if productID != nil {
		ok, err := s.dir.ProductExists(ctx, *productID)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, fmt.Errorf("%w: unknown product %d", ErrInvalidProduct, *productID)
		}
	}

	cv, err := s.convRepo.FindBetween(ctx, requesterUID, counterpartyUID, productID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, false, err
	}
	created := false
	if err != nil {
		cv, created, err = s.convRepo.FindOrCreate(ctx, &model.Conversation{
			BuyerUID:  requesterUID,
			SellerUID: counterpartyUID,
			ProductID: productID,
		})
		if err != nil {
			return nil, false, err
		}
	}
	if !cv.HasParticipant(requesterUID) || !cv.HasParticipant(counterpartyUID) {
		return nil, false, fmt.Errorf("conversation %d does not match pair %s/%s", cv.ID, requesterUID, counterpartyUID)
	}
	return cv, created, nil
}

func (s *conversationService) CreateForProduct(ctx context.Context, requesterUID string, productID uint64) (*model.Conversation, bool, error) {
	seller, err := s.dir.ProductSeller(ctx, productID)
	if err != nil {
		if errors.Is(err, directory.ErrProductNotFound) {
			return nil, false, fmt.Errorf("%w: unknown product %d", ErrInvalidProduct, productID)
		}
		return nil, false, err
	}
	if seller == requesterUID {
		return nil, false, fmt.Errorf("%w: cannot chat with yourself", ErrInvalidParticipant)
	}
	return s.CreateOrGet(ctx, requesterUID, seller, &productID)
}

func (s *conversationService) RecordLastMessage(ctx context.Context, id uint64, text string, at time.Time) error {
	if err := s.convRepo.UpdateLastMessage(ctx, id, text, at); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
