package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the directory entry for an authenticated account. The UID is the
// identity provider's subject.
type User struct {
	UID         string    `gorm:"column:uid;primaryKey;size:128"`
	DisplayName string    `gorm:"column:display_name;size:120;not null"`
	AvatarURL   *string   `gorm:"column:avatar_url;size:512"`
	Role        string    `gorm:"column:role;size:32;not null;default:user"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
