package model

import "time"

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64    `gorm:"column:conversation_id;not null;index:idx_chat_messages_conv_created,priority:1" json:"conversationId"`
	SenderUID      string    `gorm:"column:sender_uid;size:128;not null;index" json:"senderUid"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	IsRead         bool      `gorm:"column:is_read;not null;default:false" json:"isRead"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_chat_messages_conv_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string {
	return "chat_messages"
}
