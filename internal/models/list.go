package models

import (
	"time"

	"github.com/google/uuid"
)

type ContactList struct {
	ID          int64      `json:"id"`
	APIID       *uuid.UUID `json:"api_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Favorite    bool       `json:"favorite"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Custom field value types accepted by the remote service.
const (
	CustomFieldTypeString = "string"
	CustomFieldTypeDate   = "date"
)

type CustomField struct {
	ID    int64      `json:"id"`
	APIID *uuid.UUID `json:"api_id,omitempty"`
	Label string     `json:"label"`
	// Name is derived by the remote service from Label and is read-only.
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
