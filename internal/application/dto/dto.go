// Package dto provides data transfer objects for the application layer.
package dto

import (
	"time"

	"github.com/turtacn/sixcities/internal/domain/models"
)

// CreateCityRequest represents the request to create a city.
type CreateCityRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=128"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// UpdateCityRequest represents a partial city update. Nil fields are left unchanged.
type UpdateCityRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// Fields returns the columns to update.
func (r *UpdateCityRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Name != nil {
		fields["name"] = *r.Name
	}
	if r.Latitude != nil {
		fields["latitude"] = *r.Latitude
	}
	if r.Longitude != nil {
		fields["longitude"] = *r.Longitude
	}
	return fields
}

// CreateUserRequest represents the request to register a user.
type CreateUserRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=15"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=12"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=regular pro"`
}

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on a successful sign-in.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// UpdateAvatarRequest sets a user's avatar.
type UpdateAvatarRequest struct {
	AvatarURL string `json:"avatar_url" validate:"required,url"`
}

// CreateOfferRequest represents the request to list an offer. HostID is
// taken from the authenticated principal, never from the body.
type CreateOfferRequest struct {
	Title        string   `json:"title" validate:"required,min=10,max=100"`
	Description  string   `json:"description" validate:"required,min=20,max=1024"`
	CityID       string   `json:"city_id" validate:"required,uuid"`
	HostID       string   `json:"-" validate:"required,uuid"`
	PreviewImage string   `json:"preview_image" validate:"required"`
	Images       []string `json:"images" validate:"max=6,dive,required"`
	IsPremium    bool     `json:"is_premium"`
	Type         string   `json:"type" validate:"required,oneof=apartment house room hotel"`
	Rooms        int      `json:"rooms" validate:"gte=1,lte=8"`
	Guests       int      `json:"guests" validate:"gte=1,lte=10"`
	Price        int      `json:"price" validate:"gte=100,lte=100000"`
	Goods        []string `json:"goods" validate:"dive,required"`
	Latitude     float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64  `json:"longitude" validate:"gte=-180,lte=180"`
}

// ToModel converts the request into a new offer.
func (r *CreateOfferRequest) ToModel() *models.Offer {
	return &models.Offer{
		Title:        r.Title,
		Description:  r.Description,
		CityID:       r.CityID,
		HostID:       r.HostID,
		PreviewImage: r.PreviewImage,
		Images:       r.Images,
		IsPremium:    r.IsPremium,
		Type:         models.OfferType(r.Type),
		Rooms:        r.Rooms,
		Guests:       r.Guests,
		Price:        r.Price,
		Goods:        r.Goods,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
	}
}

// UpdateOfferRequest represents a partial offer update.
type UpdateOfferRequest struct {
	Title        *string   `json:"title,omitempty" validate:"omitempty,min=10,max=100"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,min=20,max=1024"`
	PreviewImage *string   `json:"preview_image,omitempty"`
	Images       *[]string `json:"images,omitempty" validate:"omitempty,max=6"`
	IsPremium    *bool     `json:"is_premium,omitempty"`
	Type         *string   `json:"type,omitempty" validate:"omitempty,oneof=apartment house room hotel"`
	Rooms        *int      `json:"rooms,omitempty" validate:"omitempty,gte=1,lte=8"`
	Guests       *int      `json:"guests,omitempty" validate:"omitempty,gte=1,lte=10"`
	Price        *int      `json:"price,omitempty" validate:"omitempty,gte=100,lte=100000"`
}

// Fields returns the columns to update.
func (r *UpdateOfferRequest) Fields() map[string]any {
	fields := map[string]any{}
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.PreviewImage != nil {
		fields["preview_image"] = *r.PreviewImage
	}
	if r.Images != nil {
		fields["images"] = models.StringList(*r.Images)
	}
	if r.IsPremium != nil {
		fields["is_premium"] = *r.IsPremium
	}
	if r.Type != nil {
		fields["type"] = *r.Type
	}
	if r.Rooms != nil {
		fields["rooms"] = *r.Rooms
	}
	if r.Guests != nil {
		fields["guests"] = *r.Guests
	}
	if r.Price != nil {
		fields["price"] = *r.Price
	}
	return fields
}

// CreateCommentRequest represents a new review. AuthorID comes from the principal.
type CreateCommentRequest struct {
	OfferID  string `json:"-" validate:"required,uuid"`
	AuthorID string `json:"-" validate:"required,uuid"`
	Text     string `json:"text" validate:"required,min=5,max=1024"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
}
