// Package models defines the server-side data models persisted in the
// database and the derived views returned by services.
package models

import "time"

// User is an identity known to the system. Credentials live elsewhere.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Asset is a top-level owned object, e.g. a boat or a vehicle.
type Asset struct {
	ID              string
	UIID            string
	UserID          string // creator
	Name            string
	Brand           string
	Model           string
	ManufactureDate time.Time
	CreatedAt       time.Time
}

// AssetAccess links a user to an asset. Exactly one link per asset has
// ReadOnly=false: the owner.
type AssetAccess struct {
	AssetID  string
	UserID   string
	ReadOnly bool
}
