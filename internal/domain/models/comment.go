package models

import "time"

// Comment is a guest review of an offer.
// Comment 是房客对房源的评价。
type Comment struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OfferID  string `json:"offer_id" gorm:"type:varchar(36);index;not null"`
	AuthorID string `json:"author_id" gorm:"type:varchar(36);index;not null"`
	Author   *User  `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Text     string `json:"text" gorm:"size:1024;not null"`
	Rating   int    `json:"rating" gorm:"not null"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// Favorite links a user to an offer they saved.
type Favorite struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	OfferID   string    `json:"offer_id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
}
