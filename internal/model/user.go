// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered rider account.
//
// The email is the identity key — unique and immutable once created. We key
// everything (hosted events, RSVPs, tokens) on it rather than a synthetic ID
// because the session token's Subject claim carries the email and every
// downstream operation receives it explicitly.
//
// The saved location (Latitude/Longitude/RadiusM/City) is absent until the
// user's first location update; HasLocation reports whether the feed can be
// computed for them. RadiusM is always meters internally — the HTTP boundary
// converts to and from miles.
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lng"`
	RadiusM      int64     `json:"-"`
	City         string    `json:"city"`
	HasLocation  bool      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
