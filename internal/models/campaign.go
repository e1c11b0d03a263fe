package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses reported by the remote service.
const (
	CampaignStatusNone      = "NONE" // still processing, no remote id yet
	CampaignStatusDraft     = "DRAFT"
	CampaignStatusScheduled = "SCHEDULED"
	CampaignStatusExecuting = "EXECUTING"
	CampaignStatusDone      = "DONE"
	CampaignStatusError     = "ERROR"
	CampaignStatusRemoved   = "REMOVED"
)

// Valid locally-initiated transitions: from -> []to. EXECUTING, DONE, ERROR
// and REMOVED are reached only through remote-side events.
var ValidCampaignTransitions = map[string][]string{
	CampaignStatusNone:      {CampaignStatusDraft},
	CampaignStatusDraft:     {CampaignStatusScheduled},
	CampaignStatusScheduled: {CampaignStatusDraft},
	CampaignStatusExecuting: {},
	CampaignStatusDone:      {},
	CampaignStatusError:     {},
	CampaignStatusRemoved:   {},
}

func IsValidCampaignTransition(from, to string) bool {
	allowed, ok := ValidCampaignTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type EmailCampaign struct {
	ID            int64      `json:"id"`
	APIID         *uuid.UUID `json:"api_id,omitempty"`
	Name          string     `json:"name"`
	CurrentStatus string     `json:"current_status"`
	ScheduledAt   *time.Time `json:"scheduled_datetime,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Analytics counters from the summary-report endpoint.
	Sends     int `json:"sends"`
	Opens     int `json:"opens"`
	Clicks    int `json:"clicks"`
	Forwards  int `json:"forwards"`
	OptOuts   int `json:"optouts"`
	Abuse     int `json:"abuse"`
	Bounces   int `json:"bounces"`
	NotOpened int `json:"not_opened"`
}

// Activity roles. Each campaign has exactly one primary_email activity, which
// carries the sendable content.
const (
	RolePrimaryEmail = "primary_email"
	RolePermalink    = "permalink"
	RoleResend       = "resend"
)

// FormatTypeModernCustom is the only format the remote service accepts for
// newly created activities.
const FormatTypeModernCustom = 5

type CampaignActivity struct {
	ID           int64      `json:"id"`
	APIID        *uuid.UUID `json:"api_id,omitempty"`
	CampaignID   int64      `json:"campaign_id"`
	Role         string     `json:"role"`
	FromName     string     `json:"from_name"`
	FromEmail    string     `json:"from_email"`
	ReplyToEmail string     `json:"reply_to_email"`
	Subject      string     `json:"subject"`
	Preheader    string     `json:"preheader"`
	HTMLContent  string     `json:"html_content"`
	FormatType   int        `json:"format_type"`
}

// ActivityContactList is the identity-less activity/list association row
// selecting campaign recipients.
type ActivityContactList struct {
	ActivityID int64 `json:"activity_id"`
	ListID     int64 `json:"list_id"`
}
