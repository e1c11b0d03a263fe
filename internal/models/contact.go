package models

import (
	"time"

	"github.com/google/uuid"
)

// Permission levels for sending email to a contact.
const (
	PermissionExplicit     = "explicit"
	PermissionImplicit     = "implicit"
	PermissionNotSet       = "not_set"
	PermissionPending      = "pending_confirmation"
	PermissionTempHold     = "temp_hold"
	PermissionUnsubscribed = "unsubscribed"
)

// Create/update source values.
const (
	SourceAccount = "Account"
	SourceContact = "Contact"
)

type Contact struct {
	ID           int64      `json:"id"`
	APIID        *uuid.UUID `json:"api_id,omitempty"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	JobTitle     string     `json:"job_title"`
	CompanyName  string     `json:"company_name"`
	Permission   string     `json:"permission_to_send"`
	CreateSource string     `json:"create_source"`
	UpdateSource string     `json:"update_source"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Populated only from remote responses.
	OptOutSource string     `json:"opt_out_source,omitempty"`
	OptOutDate   *time.Time `json:"opt_out_date,omitempty"`
	OptOutReason string     `json:"opt_out_reason,omitempty"`
}

// OptedOut reports whether the remote service recorded an unsubscribe.
func (c *Contact) OptedOut() bool {
	return c.OptOutSource != ""
}

type ContactNote struct {
	ID        int64      `json:"id"`
	APIID     *uuid.UUID `json:"api_id,omitempty"`
	ContactID int64      `json:"contact_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

// Phone number and street address kinds.
const (
	KindHome   = "home"
	KindWork   = "work"
	KindMobile = "mobile"
	KindOther  = "other"
)

// MissingPhoneNumber substitutes for unparseable remote phone values.
const MissingPhoneNumber = "000-000-0000"

type ContactPhoneNumber struct {
	ID          int64      `json:"id"`
	APIID       *uuid.UUID `json:"api_id,omitempty"`
	ContactID   int64      `json:"contact_id"`
	Kind        string     `json:"kind"`
	PhoneNumber string     `json:"phone_number"`
}

type ContactStreetAddress struct {
	ID         int64      `json:"id"`
	APIID      *uuid.UUID `json:"api_id,omitempty"`
	ContactID  int64      `json:"contact_id"`
	Kind       string     `json:"kind"`
	Street     string     `json:"street"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	PostalCode string     `json:"postal_code"`
	Country    string     `json:"country"`
}

// ContactCustomFieldValue holds a contact's value for one custom field. It has
// no identity of its own on the remote side.
type ContactCustomFieldValue struct {
	ID            int64 `json:"id"`
	ContactID     int64 `json:"contact_id"`
	CustomFieldID int64 `json:"custom_field_id"`
	Value         string `json:"value"`
}

// ContactListMembership is the identity-less contact/list association row.
// Membership sets are replaced wholesale on import, never merged.
type ContactListMembership struct {
	ContactID int64 `json:"contact_id"`
	ListID    int64 `json:"list_id"`
}
