package models

import "time"

// UserType distinguishes regular guests from professional hosts.
type UserType string

const (
	UserTypeRegular UserType = "regular"
	UserTypePro     UserType = "pro"
)

// User is a guest or a host.
// User 代表房客或房东。
type User struct {
	ID        string   `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string   `json:"name" gorm:"size:64;not null"`
	Email     string   `json:"email" gorm:"uniqueIndex;size:255;not null"`
	AvatarURL string   `json:"avatar_url"`
	Type      UserType `json:"type" gorm:"size:16;not null;default:regular"`

	// PasswordHash is never serialized, so cached users never carry it.
	// PasswordHash 不会被序列化，缓存中的用户不包含该字段。
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
