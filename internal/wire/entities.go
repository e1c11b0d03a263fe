package wire

import (
	"strings"

	"github.com/conexio/contactsync/internal/models"
)

// Entity type names. Join types (membership, recipients) are identity-less
// association shapes: they are replaced wholesale on import, never merged.
const (
	TypeContactList          = "contact_list"
	TypeCustomField          = "custom_field"
	TypeContact              = "contact"
	TypeContactNote          = "contact_note"
	TypeContactPhoneNumber   = "contact_phone_number"
	TypeContactStreetAddress = "contact_street_address"
	TypeContactCustomField   = "contact_custom_field"
	TypeListMembership       = "contact_list_membership"
	TypeEmailCampaign        = "email_campaign"
	TypeCampaignActivity     = "campaign_activity"
	TypeActivityContactList  = "activity_contact_list"
)

// Registry is the declarative schema table: one entry per entity type, with
// field kinds, wire names and cleaning hooks attached directly to the entry.
var Registry = map[string]*Entity{

	TypeContactList: {
		Type:          TypeContactList,
		Endpoint:      "/contact_lists",
		WireID:        "list_id",
		CollectionKey: "lists",
		Editable: []Field{
			{Name: "name"},
			{Name: "description"},
			{Name: "favorite"},
		},
		Readonly: []Field{
			{Name: "created_at", Time: true},
			{Name: "updated_at", Time: true},
		},
	},

	TypeCustomField: {
		Type:          TypeCustomField,
		Endpoint:      "/contact_custom_fields",
		WireID:        "custom_field_id",
		CollectionKey: "custom_fields",
		Editable: []Field{
			{Name: "label"},
			{Name: "type"},
		},
		Readonly: []Field{
			{Name: "name"},
			{Name: "created_at", Time: true},
			{Name: "updated_at", Time: true},
		},
	},

	TypeContact: {
		Type:          TypeContact,
		Endpoint:      "/contacts",
		WireID:        "contact_id",
		CollectionKey: "contacts",
		IncludeQuery:  "custom_fields,list_memberships,notes,phone_numbers,street_addresses",
		Editable: []Field{
			{Name: "email"},
			{Name: "first_name"},
			{Name: "last_name"},
			{Name: "job_title"},
			{Name: "company_name"},
			{Name: "phone_numbers", Kind: Collection, Related: TypeContactPhoneNumber, ParentRef: "contact"},
			{Name: "street_addresses", Kind: Collection, Related: TypeContactStreetAddress, ParentRef: "contact"},
			{Name: "custom_fields", Kind: Collection, Related: TypeContactCustomField, ParentRef: "contact"},
			{Name: "list_memberships", Kind: MultiReference, Related: TypeContactList, Join: TypeListMembership},
			{Name: "notes", Kind: Collection, Related: TypeContactNote, ParentRef: "contact"},
		},
		Readonly: []Field{
			{Name: "permission_to_send"},
			{Name: "create_source"},
			{Name: "update_source"},
			{Name: "created_at", Time: true},
			{Name: "updated_at", Time: true},
			{Name: "opt_out_source"},
			{Name: "opt_out_date", Time: true},
			{Name: "opt_out_reason"},
		},
		Cleaners: map[string]CleanFunc{
			"email": func(data map[string]any) (any, bool) {
				if addr, ok := nested(data, "email_address", "address"); ok {
					if s, ok := addr.(string); ok {
						return strings.ToLower(s), true
					}
				}
				return nil, false
			},
			"permission_to_send": func(data map[string]any) (any, bool) {
				return nested(data, "email_address", "permission_to_send")
			},
			"opt_out_source": func(data map[string]any) (any, bool) {
				if v, ok := nested(data, "email_address", "opt_out_source"); ok {
					return v, true
				}
				return "", true
			},
			"opt_out_date": func(data map[string]any) (any, bool) {
				if v, ok := nested(data, "email_address", "opt_out_date"); ok {
					if s, ok := v.(string); ok && s != "" {
						if t, err := ParseTime(s); err == nil {
							return t, true
						}
					}
				}
				return nil, false
			},
		},
		Hook: contactHook,
	},

	TypeContactNote: {
		Type:   TypeContactNote,
		WireID: "note_id",
		Editable: []Field{
			{Name: "content"},
		},
		Readonly: []Field{
			{Name: "created_at", Time: true},
			{Name: "contact", Kind: Reference, Related: TypeContact},
		},
	},

	TypeContactPhoneNumber: {
		Type:   TypeContactPhoneNumber,
		WireID: "phone_number_id",
		Editable: []Field{
			{Name: "kind"},
			{Name: "phone_number"},
		},
		Readonly: []Field{
			{Name: "contact", Kind: Reference, Related: TypeContact},
		},
		Cleaners: map[string]CleanFunc{
			"phone_number": func(data map[string]any) (any, bool) {
				raw, _ := data["phone_number"].(string)
				digits := keepDigits(raw)
				if digits == "" {
					return models.MissingPhoneNumber, true
				}
				return digits, true
			},
		},
	},

	TypeContactStreetAddress: {
		Type:   TypeContactStreetAddress,
		WireID: "street_address_id",
		Editable: []Field{
			{Name: "kind"},
			{Name: "street"},
			{Name: "city"},
			{Name: "state"},
			{Name: "postal_code"},
			{Name: "country"},
		},
		Readonly: []Field{
			{Name: "contact", Kind: Reference, Related: TypeContact},
		},
		Cleaners: map[string]CleanFunc{
			"street":      addressCleaner("street"),
			"city":        addressCleaner("city"),
			"state":       addressCleaner("state"),
			"postal_code": addressCleaner("postal_code"),
			"country":     addressCleaner("country"),
		},
	},

	// Pure value type: no remote identity of its own.
	TypeContactCustomField: {
		Type: TypeContactCustomField,
		Editable: []Field{
			{Name: "custom_field", Wire: "custom_field_id", Kind: Reference, Related: TypeCustomField},
			{Name: "value"},
		},
		Readonly: []Field{
			{Name: "contact", Kind: Reference, Related: TypeContact},
		},
	},

	TypeListMembership: {
		Type: TypeListMembership,
		Editable: []Field{
			{Name: "contact", Kind: Reference, Related: TypeContact},
			{Name: "contact_list", Kind: Reference, Related: TypeContactList},
		},
	},

	TypeEmailCampaign: {
		Type:          TypeEmailCampaign,
		Endpoint:      "/emails",
		WireID:        "campaign_id",
		CollectionKey: "campaigns",
		Editable: []Field{
			{Name: "name"},
			{Name: "scheduled_datetime", Time: true},
		},
		Readonly: []Field{
			{Name: "current_status"},
			{Name: "created_at", Time: true},
			{Name: "updated_at", Time: true},
			{Name: "sends"},
			{Name: "opens"},
			{Name: "clicks"},
			{Name: "forwards"},
			{Name: "optouts"},
			{Name: "abuse"},
			{Name: "bounces"},
			{Name: "not_opened"},
			{Name: "campaign_activities", Kind: Collection, Related: TypeCampaignActivity, ParentRef: "campaign"},
		},
		Cleaners: map[string]CleanFunc{
			"sends":      counterCleaner("sends"),
			"opens":      counterCleaner("opens"),
			"clicks":     counterCleaner("clicks"),
			"forwards":   counterCleaner("forwards"),
			"optouts":    counterCleaner("optouts"),
			"abuse":      counterCleaner("abuse"),
			"bounces":    counterCleaner("bounces"),
			"not_opened": counterCleaner("not_opened"),
			"current_status": func(data map[string]any) (any, bool) {
				// Rows from the summary-report endpoint carry counters instead
				// of a status: those campaigns have already been sent.
				if _, ok := data["unique_counts"]; ok {
					return models.CampaignStatusDone, true
				}
				return nil, false
			},
		},
		Hook: campaignHook,
	},

	TypeCampaignActivity: {
		Type:         TypeCampaignActivity,
		Endpoint:     "/emails/activities",
		WireID:       "campaign_activity_id",
		IncludeQuery: "html_content",
		Editable: []Field{
			{Name: "from_name"},
			{Name: "from_email"},
			{Name: "reply_to_email"},
			{Name: "subject"},
			{Name: "preheader"},
			{Name: "html_content"},
			{Name: "contact_lists", Kind: MultiReference, Related: TypeContactList, Join: TypeActivityContactList},
		},
		Readonly: []Field{
			{Name: "role"},
			{Name: "current_status"},
			{Name: "format_type"},
			{Name: "campaign", Kind: Reference, Related: TypeEmailCampaign},
		},
		Hook: activityHook,
	},

	TypeActivityContactList: {
		Type: TypeActivityContactList,
		Editable: []Field{
			{Name: "campaign_activity", Kind: Reference, Related: TypeCampaignActivity},
			{Name: "contact_list", Kind: Reference, Related: TypeContactList},
		},
	},
}

// contactHook wraps the flat email into the nested email_address structure
// and stamps the create/update source, depending on whether the contact
// already exists remotely.
func contactHook(rec *Record, data map[string]any) map[string]any {
	permission := rec.String("permission_to_send")
	if permission == "" {
		permission = models.PermissionImplicit
	}
	email, _ := data["email"].(string)
	delete(data, "email")
	data["email_address"] = map[string]any{
		"address":            email,
		"permission_to_send": permission,
	}

	source := rec.String("create_source")
	if source == "" {
		source = models.SourceAccount
	}
	if rec.RemoteID != "" {
		data["update_source"] = source
	} else {
		data["create_source"] = source
	}
	return data
}

// campaignHook restricts post-creation serialization to the name field, the
// only one the wire protocol lets through after the campaign exists remotely.
func campaignHook(rec *Record, data map[string]any) map[string]any {
	if rec.RemoteID != "" {
		return map[string]any{"name": data["name"]}
	}
	return data
}

// activityHook stamps the format type on creation and renames the recipient
// key once the activity exists remotely.
func activityHook(rec *Record, data map[string]any) map[string]any {
	if rec.RemoteID == "" {
		data["format_type"] = models.FormatTypeModernCustom
		return data
	}
	if lists, ok := data["contact_lists"]; ok {
		delete(data, "contact_lists")
		data["contact_list_ids"] = lists
	}
	return data
}

func addressCleaner(key string) CleanFunc {
	replacer := strings.NewReplacer("\n", " ", "\t", " ")
	return func(data map[string]any) (any, bool) {
		s, _ := data[key].(string)
		return strings.TrimSpace(replacer.Replace(s)), true
	}
}

func counterCleaner(key string) CleanFunc {
	return func(data map[string]any) (any, bool) {
		return nested(data, "unique_counts", key)
	}
}

func nested(data map[string]any, keys ...string) (any, bool) {
	var current any = data
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
