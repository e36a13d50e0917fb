package model

import (
	"strconv"
	"strings"
	"time"
)

// Conversation is a thread between two users, optionally about one product.
// PairKey and ProductKey back the unique index that keeps at most one
// conversation per unordered pair and product.
type Conversation struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerUID      string     `gorm:"column:buyer_uid;size:128;not null;index" json:"buyerUid"`
	SellerUID     string     `gorm:"column:seller_uid;size:128;not null;index" json:"sellerUid"`
	ProductID     *uint64    `gorm:"column:product_id;index" json:"productId,omitempty"`
	PairKey       string     `gorm:"column:pair_key;size:300;not null;uniqueIndex:uniq_conversation_pair_product" json:"-"`
	ProductKey    uint64     `gorm:"column:product_key;not null;default:0;uniqueIndex:uniq_conversation_pair_product" json:"-"`
	LastMessage   string     `gorm:"column:last_message;type:text" json:"lastMessage"`
	LastMessageAt *time.Time `gorm:"column:last_message_at;index" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether uid is the buyer or the seller.
func (c *Conversation) HasParticipant(uid string) bool {
	return uid != "" && (c.BuyerUID == uid || c.SellerUID == uid)
}

// Counterpart returns the other participant, or "" if uid is not one.
func (c *Conversation) Counterpart(uid string) string {
	switch uid {
	case c.BuyerUID:
		return c.SellerUID
	case c.SellerUID:
		return c.BuyerUID
	}
	return ""
}

// PairKey orders the two uids so (a,b) and (b,a) share a key. The first uid
// is length-prefixed, so uids containing the separator cannot collide.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + "|" + b
}

// ProductKey maps "no product" to 0 so it participates in the unique index.
func ProductKey(productID *uint64) uint64 {
	if productID == nil {
		return 0
	}
	return *productID
}
