package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	// FindOrCreate inserts cv unless a conversation with the same pair and
	// product already exists, in which case the existing row is returned.
	// created reports whether cv was inserted.
	FindOrCreate(ctx context.Context, cv *model.Conversation) (stored *model.Conversation, created bool, err error)
	FindBetween(ctx context.Context, uidA, uidB string, productID *uint64) (*model.Conversation, error)
	FindByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	UpdateLastMessage(ctx context.Context, id uint64, text string, at time.Time) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, cv *model.Conversation) (*model.Conversation, bool, error) {
	cv.PairKey = model.PairKey(cv.BuyerUID, cv.SellerUID)
	cv.ProductKey = model.ProductKey(cv.ProductID)

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}, {Name: "product_key"}},
			DoNothing: true,
		}).
		Create(cv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 && cv.ID != 0 {
		return cv, true, nil
	}

	// Lost the race (or the row already existed): return the winner.
	var existing model.Conversation
	if err := r.db.WithContext(ctx).
		Where("pair_key = ? AND product_key = ?", cv.PairKey, cv.ProductKey).
		First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// FindBetween matches either ordering of the pair. With a product it
// requires that exact product; without one it accepts any thread between
// the two, preferring the product-less one, then the oldest.
func (r *conversationRepository) FindBetween(ctx context.Context, uidA, uidB string, productID *uint64) (*model.Conversation, error) {
	q := r.db.WithContext(ctx).Where("pair_key = ?", model.PairKey(uidA, uidB))
	if productID != nil {
		q = q.Where("product_key = ?", *productID)
	}
	// A miss is the normal first-contact path; Find keeps it out of the warn log.
	var cv model.Conversation
	res := q.Order("product_key ASC").Order("id ASC").Limit(1).Find(&cv)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &cv, nil
}

func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ? OR buyer_uid = ?", uid, uid).
		Order("COALESCE(last_message_at, created_at) DESC").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

// UpdateLastMessage never moves the preview backwards in time. An update
// older than the stored one is a silent no-op.
func (r *conversationRepository) UpdateLastMessage(ctx context.Context, id uint64, text string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at <= ?)", id, at).
		Updates(map[string]interface{}{
			"last_message":    text,
			"last_message_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
