package wire

import (
	"github.com/google/uuid"

	"github.com/conexio/contactsync/internal/models"
)

// Binders translate typed rows from local storage into generic records for
// the serializer. The reverse direction goes through the storage layer, which
// writes deserialized records straight into tables.

func remoteID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func RecordFromContactList(l *models.ContactList) *Record {
	rec := NewRecord(TypeContactList)
	rec.LocalID = l.ID
	rec.RemoteID = remoteID(l.APIID)
	rec.Scalars["name"] = l.Name
	rec.Scalars["description"] = l.Description
	rec.Scalars["favorite"] = l.Favorite
	rec.Scalars["created_at"] = l.CreatedAt
	rec.Scalars["updated_at"] = l.UpdatedAt
	return rec
}

func RecordFromCustomField(f *models.CustomField) *Record {
	rec := NewRecord(TypeCustomField)
	rec.LocalID = f.ID
	rec.RemoteID = remoteID(f.APIID)
	rec.Scalars["label"] = f.Label
	rec.Scalars["name"] = f.Name
	rec.Scalars["type"] = f.Type
	rec.Scalars["created_at"] = f.CreatedAt
	rec.Scalars["updated_at"] = f.UpdatedAt
	return rec
}

// ContactGraph bundles a contact with its dependent rows for outbound
// serialization.
type ContactGraph struct {
	Contact       *models.Contact
	Notes         []*models.ContactNote
	PhoneNumbers  []*models.ContactPhoneNumber
	Addresses     []*models.ContactStreetAddress
	CustomValues  []*models.ContactCustomFieldValue
	CustomRemote  map[int64]string // custom field local id -> remote id
	ListRemoteIDs []string
}

func RecordFromContact(g *ContactGraph) *Record {
	c := g.Contact
	rec := NewRecord(TypeContact)
	rec.LocalID = c.ID
	rec.RemoteID = remoteID(c.APIID)
	rec.Scalars["email"] = c.Email
	rec.Scalars["first_name"] = c.FirstName
	rec.Scalars["last_name"] = c.LastName
	rec.Scalars["job_title"] = c.JobTitle
	rec.Scalars["company_name"] = c.CompanyName
	rec.Scalars["permission_to_send"] = c.Permission
	rec.Scalars["create_source"] = c.CreateSource
	rec.Scalars["update_source"] = c.UpdateSource

	for _, n := range g.Notes {
		child := NewRecord(TypeContactNote)
		child.LocalID = n.ID
		child.RemoteID = remoteID(n.APIID)
		child.Scalars["content"] = n.Content
		child.Refs["contact"] = Ref{LocalID: c.ID, RemoteID: rec.RemoteID}
		rec.AddChild("notes", child)
	}
	for _, p := range g.PhoneNumbers {
		child := NewRecord(TypeContactPhoneNumber)
		child.LocalID = p.ID
		child.RemoteID = remoteID(p.APIID)
		child.Scalars["kind"] = p.Kind
		child.Scalars["phone_number"] = p.PhoneNumber
		child.Refs["contact"] = Ref{LocalID: c.ID, RemoteID: rec.RemoteID}
		rec.AddChild("phone_numbers", child)
	}
	for _, a := range g.Addresses {
		child := NewRecord(TypeContactStreetAddress)
		child.LocalID = a.ID
		child.RemoteID = remoteID(a.APIID)
		child.Scalars["kind"] = a.Kind
		child.Scalars["street"] = a.Street
		child.Scalars["city"] = a.City
		child.Scalars["state"] = a.State
		child.Scalars["postal_code"] = a.PostalCode
		child.Scalars["country"] = a.Country
		child.Refs["contact"] = Ref{LocalID: c.ID, RemoteID: rec.RemoteID}
		rec.AddChild("street_addresses", child)
	}
	for _, v := range g.CustomValues {
		child := NewRecord(TypeContactCustomField)
		child.LocalID = v.ID
		child.Scalars["value"] = v.Value
		child.Refs["custom_field"] = Ref{
			LocalID:  v.CustomFieldID,
			RemoteID: g.CustomRemote[v.CustomFieldID],
		}
		child.Refs["contact"] = Ref{LocalID: c.ID, RemoteID: rec.RemoteID}
		rec.AddChild("custom_fields", child)
	}
	for _, id := range g.ListRemoteIDs {
		rec.AddMulti("list_memberships", Ref{RemoteID: id})
	}
	return rec
}

func RecordFromCampaign(c *models.EmailCampaign) *Record {
	rec := NewRecord(TypeEmailCampaign)
	rec.LocalID = c.ID
	rec.RemoteID = remoteID(c.APIID)
	rec.Scalars["name"] = c.Name
	rec.Scalars["current_status"] = c.CurrentStatus
	if c.ScheduledAt != nil {
		rec.Scalars["scheduled_datetime"] = *c.ScheduledAt
	}
	return rec
}

// RecordFromActivity carries the recipient lists as remote ids so the
// serialized body can name them directly.
func RecordFromActivity(a *models.CampaignActivity, campaignRemoteID string, listRemoteIDs []string) *Record {
	rec := NewRecord(TypeCampaignActivity)
	rec.LocalID = a.ID
	rec.RemoteID = remoteID(a.APIID)
	rec.Scalars["role"] = a.Role
	rec.Scalars["from_name"] = a.FromName
	rec.Scalars["from_email"] = a.FromEmail
	rec.Scalars["reply_to_email"] = a.ReplyToEmail
	rec.Scalars["subject"] = a.Subject
	rec.Scalars["preheader"] = a.Preheader
	rec.Scalars["html_content"] = a.HTMLContent
	rec.Scalars["format_type"] = a.FormatType
	rec.Refs["campaign"] = Ref{LocalID: a.CampaignID, RemoteID: campaignRemoteID}
	for _, id := range listRemoteIDs {
		rec.AddMulti("contact_lists", Ref{RemoteID: id})
	}
	return rec
}
