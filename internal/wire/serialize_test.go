package wire

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/conexio/contactsync/internal/models"
)

func mustUUID(t *testing.T, s string) *uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid %q: %v", s, err)
	}
	return &id
}

func TestSerializeContactForCreate(t *testing.T) {
	g := &ContactGraph{
		Contact: &models.Contact{
			ID:        1,
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
		PhoneNumbers: []*models.ContactPhoneNumber{
			{ID: 10, ContactID: 1, Kind: models.KindMobile, PhoneNumber: "5551234567"},
		},
		ListRemoteIDs: []string{"11111111-1111-1111-1111-111111111111"},
	}
	data, err := Serialize(RecordFromContact(g), SelectEditable)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	addr, ok := data["email_address"].(map[string]any)
	if !ok {
		t.Fatalf("email_address = %#v", data["email_address"])
	}
	if addr["address"] != "ada@example.com" {
		t.Fatalf("address = %v", addr["address"])
	}
	if addr["permission_to_send"] != models.PermissionImplicit {
		t.Fatalf("permission defaults to implicit, got %v", addr["permission_to_send"])
	}
	if _, flat := data["email"]; flat {
		t.Fatal("flat email key must be replaced by email_address")
	}
	if data["create_source"] != models.SourceAccount {
		t.Fatalf("create_source = %v", data["create_source"])
	}
	if _, has := data["update_source"]; has {
		t.Fatal("update_source only applies to existing remote contacts")
	}
	if _, has := data["created_at"]; has {
		t.Fatal("readonly fields must not appear in an editable serialization")
	}

	lists, ok := data["list_memberships"].([]string)
	if !ok || len(lists) != 1 {
		t.Fatalf("list_memberships = %#v", data["list_memberships"])
	}
	phones, ok := data["phone_numbers"].([]map[string]any)
	if !ok || len(phones) != 1 || phones[0]["phone_number"] != "5551234567" {
		t.Fatalf("phone_numbers = %#v", data["phone_numbers"])
	}
}

func TestSerializeExistingContactStampsUpdateSource(t *testing.T) {
	g := &ContactGraph{
		Contact: &models.Contact{
			ID:    1,
			APIID: mustUUID(t, "22222222-2222-2222-2222-222222222222"),
			Email: "ada@example.com",
		},
	}
	data, err := Serialize(RecordFromContact(g), SelectEditable)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if data["update_source"] != models.SourceAccount {
		t.Fatalf("update_source = %v", data["update_source"])
	}
	if _, has := data["create_source"]; has {
		t.Fatal("create_source must not appear on updates")
	}
}

func TestSerializeUnsavedRecordSkipsRelations(t *testing.T) {
	rec := NewRecord(TypeContact)
	rec.Scalars["email"] = "ada@example.com"
	rec.AddMulti("list_memberships", Ref{RemoteID: "11111111-1111-1111-1111-111111111111"})

	data, err := Serialize(rec, SelectEditable)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	lists, ok := data["list_memberships"].([]string)
	if !ok || len(lists) != 0 {
		t.Fatalf("unsaved records must serialize empty relation sets, got %#v", data["list_memberships"])
	}
}

func TestSerializeNewActivity(t *testing.T) {
	a := &models.CampaignActivity{
		ID: 3, CampaignID: 2, Role: models.RolePrimaryEmail,
		FromName: "Marketing", FromEmail: "news@example.com", ReplyToEmail: "news@example.com",
		Subject: "Hello", HTMLContent: "<html></html>",
	}
	data, err := Serialize(RecordFromActivity(a, "", []string{"list-1"}), SelectEditable)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if data["format_type"] != models.FormatTypeModernCustom {
		t.Fatalf("format_type = %v", data["format_type"])
	}
	lists, ok := data["contact_lists"].([]string)
	if !ok || len(lists) != 1 || lists[0] != "list-1" {
		t.Fatalf("contact_lists = %#v", data["contact_lists"])
	}
}

func TestSerializeExistingActivityRenamesRecipients(t *testing.T) {
	a := &models.CampaignActivity{
		ID: 3, CampaignID: 2, Role: models.RolePrimaryEmail,
		APIID:   mustUUID(t, "33333333-3333-3333-3333-333333333333"),
		Subject: "Hello",
	}
	data, err := Serialize(RecordFromActivity(a, "camp-1", []string{"list-1"}), SelectEditable)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, has := data["contact_lists"]; has {
		t.Fatal("existing activities must carry contact_list_ids instead")
	}
	ids, ok := data["contact_list_ids"].([]string)
	if !ok || len(ids) != 1 {
		t.Fatalf("contact_list_ids = %#v", data["contact_list_ids"])
	}
	if _, has := data["format_type"]; has {
		t.Fatal("format_type is only stamped on creation")
	}
}

func TestSerializeExistingCampaignIsNameOnly(t *testing.T) {
	when := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c := &models.EmailCampaign{
		ID: 2, Name: "September newsletter",
		APIID:       mustUUID(t, "44444444-4444-4444-4444-444444444444"),
		ScheduledAt: &when,
	}
	data, err := Serialize(RecordFromCampaign(c), SelectEditable)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if len(data) != 1 || data["name"] != "September newsletter" {
		t.Fatalf("existing campaigns serialize name only, got %#v", data)
	}
}

func TestSerializeTimestampFormat(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	rec := NewRecord(TypeEmailCampaign)
	rec.Scalars["name"] = "n"
	rec.Scalars["scheduled_datetime"] = time.Date(2026, 9, 1, 13, 30, 0, 0, loc)

	data, err := Serialize(rec, SelectEditable)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if data["scheduled_datetime"] != "2026-09-01T12:30:00Z" {
		t.Fatalf("scheduled_datetime = %v", data["scheduled_datetime"])
	}
}
