package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OfferType is the kind of accommodation.
type OfferType string

const (
	OfferTypeApartment OfferType = "apartment"
	OfferTypeHouse     OfferType = "house"
	OfferTypeRoom      OfferType = "room"
	OfferTypeHotel     OfferType = "hotel"
)

// Offer is a rent offer listed by a host in a city.
// Offer 是房东在某个城市发布的租赁房源。
type Offer struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title        string     `json:"title" gorm:"size:100;not null"`
	Description  string     `json:"description" gorm:"size:1024"`
	CityID       string     `json:"city_id" gorm:"type:varchar(36);index;not null"`
	City         *City      `json:"city,omitempty" gorm:"foreignKey:CityID"`
	HostID       string     `json:"host_id" gorm:"type:varchar(36);index;not null"`
	Host         *User      `json:"host,omitempty" gorm:"foreignKey:HostID"`
	PreviewImage string     `json:"preview_image"`
	Images       StringList `json:"images" gorm:"type:text"`
	IsPremium    bool       `json:"is_premium" gorm:"index"`
	Type         OfferType  `json:"type" gorm:"size:16"`
	Rooms        int        `json:"rooms"`
	Guests       int        `json:"guests"`
	Price        int        `json:"price"`
	Goods        StringList `json:"goods" gorm:"type:text"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`

	// Rating and CommentCount are derived from comments.
	// Rating 与 CommentCount 由评论聚合得出。
	Rating       float64 `json:"rating"`
	CommentCount int     `json:"comment_count"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OfferFilter narrows list queries. Zero values mean "any".
type OfferFilter struct {
	CityID      string
	PremiumOnly bool
	IDs         []string
}

// ListOptions bounds and orders list queries.
type ListOptions struct {
	Limit int
	// SortBy is a column name; the repository whitelists it.
	SortBy string
	Desc   bool
}

// StringList is a string slice stored as a JSON array in a text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	return json.Unmarshal(raw, (*[]string)(l))
}
