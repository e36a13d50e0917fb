package repository

import (
	"context"

	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uint64) (*model.Message, error)
	ListByConversation(ctx context.Context, convID uint64) ([]model.Message, error)
	MarkReadFor(ctx context.Context, convID uint64, readerUID string) (int64, error)
	DeleteOwned(ctx context.Context, convID, msgID uint64, senderUID string) (int64, error)
	CountUnread(ctx context.Context, convID uint64, uid string) (int64, error)
	CountUnreadByConversation(ctx context.Context, uid string, convIDs []uint64) (map[uint64]int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uint64) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, convID uint64) ([]model.Message, error) {
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkReadFor flips every unread message the other participant sent. It is a
// single statement so a concurrent send is either fully in or fully out.
func (r *messageRepository) MarkReadFor(ctx context.Context, convID uint64, readerUID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_uid <> ? AND is_read = ?", convID, readerUID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// DeleteOwned removes the message only if it still matches the conversation
// and sender. Zero rows means someone else got there first.
func (r *messageRepository) DeleteOwned(ctx context.Context, convID, msgID uint64, senderUID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND conversation_id = ? AND sender_uid = ?", msgID, convID, senderUID).
		Delete(&model.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, convID uint64, uid string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_uid <> ? AND is_read = ?", convID, uid, false).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *messageRepository) CountUnreadByConversation(ctx context.Context, uid string, convIDs []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(convIDs))
	if len(convIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ConversationID uint64
		Cnt            int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("conversation_id, COUNT(*) AS cnt").
		Where("conversation_id IN ? AND sender_uid <> ? AND is_read = ?", convIDs, uid, false).
		Group("conversation_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ConversationID] = row.Cnt
	}
	return out, nil
}
