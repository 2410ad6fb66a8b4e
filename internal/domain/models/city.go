// Package models defines the domain entities of the rental listing service.
package models

import "time"

// City is a destination offers are listed in.
// City 是房源所在的城市。
type City struct {
	// ID is a UUID string.
	ID string `json:"id" gorm:"primaryKey;type:varchar(36)"`

	// Name is unique, case-sensitive as stored.
	// Name 唯一。
	Name string `json:"name" gorm:"uniqueIndex;size:128;not null"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
