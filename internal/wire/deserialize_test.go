package wire

import (
	"testing"
	"time"

	"github.com/conexio/contactsync/internal/models"
)

func TestDeserializeContact(t *testing.T) {
	data := map[string]any{
		"contact_id": "22222222-2222-2222-2222-222222222222",
		"email_address": map[string]any{
			"address":            "Ada@Example.COM",
			"permission_to_send": models.PermissionExplicit,
		},
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"created_at": "2023-01-15T10:30:00Z",
		"phone_numbers": []any{
			map[string]any{
				"phone_number_id": "55555555-5555-5555-5555-555555555555",
				"kind":            "mobile",
				"phone_number":    "+1 (555) 123-4567",
			},
		},
		"street_addresses": []any{
			map[string]any{
				"street_address_id": "66666666-6666-6666-6666-666666666666",
				"kind":              "home",
				"street":            "12\tMain\nStreet",
				"city":              "London",
			},
		},
		"list_memberships": []any{
			"11111111-1111-1111-1111-111111111111",
			"99999999-9999-9999-9999-999999999999",
		},
		"notes": []any{
			map[string]any{"note_id": "77777777-7777-7777-7777-777777777777", "content": "VIP"},
		},
		"unknown_key": "dropped",
	}

	rec, bucket, err := Deserialize(TypeContact, data, 42)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if rec.LocalID != 42 {
		t.Fatalf("local id = %d", rec.LocalID)
	}
	if rec.RemoteID != "22222222-2222-2222-2222-222222222222" {
		t.Fatalf("remote id = %s", rec.RemoteID)
	}
	if rec.String("email") != "ada@example.com" {
		t.Fatalf("email = %q, want lowercased", rec.String("email"))
	}
	if rec.String("permission_to_send") != models.PermissionExplicit {
		t.Fatalf("permission = %q", rec.String("permission_to_send"))
	}
	if rec.String("opt_out_source") != "" {
		t.Fatalf("opt_out_source = %q", rec.String("opt_out_source"))
	}
	created, ok := rec.Time("created_at")
	if !ok || !created.Equal(time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("created_at = %v", rec.Scalars["created_at"])
	}
	if _, has := rec.Scalars["unknown_key"]; has {
		t.Fatal("undeclared keys must be dropped")
	}

	phones := bucket[TypeContactPhoneNumber]
	if len(phones) != 1 {
		t.Fatalf("phones = %d", len(phones))
	}
	if phones[0].String("phone_number") != "15551234567" {
		t.Fatalf("phone = %q, want digits only", phones[0].String("phone_number"))
	}
	if phones[0].Refs["contact"].RemoteID != rec.RemoteID {
		t.Fatal("phone must point back at its contact")
	}

	addrs := bucket[TypeContactStreetAddress]
	if len(addrs) != 1 {
		t.Fatalf("addresses = %d", len(addrs))
	}
	if got := addrs[0].String("street"); got != "12 Main Street" {
		t.Fatalf("street = %q, want collapsed whitespace", got)
	}

	notes := bucket[TypeContactNote]
	if len(notes) != 1 || notes[0].String("content") != "VIP" {
		t.Fatalf("notes = %#v", notes)
	}

	joins := bucket[TypeListMembership]
	if len(joins) != 2 {
		t.Fatalf("memberships = %d", len(joins))
	}
	if joins[0].Refs["contact"].RemoteID != rec.RemoteID {
		t.Fatal("membership contact side must carry the parent remote id")
	}
	if joins[0].Refs["contact_list"].RemoteID != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("membership list side = %#v", joins[0].Refs["contact_list"])
	}
}

func TestDeserializeUnparseablePhoneFallsBack(t *testing.T) {
	rec, _, err := Deserialize(TypeContactPhoneNumber, map[string]any{
		"phone_number_id": "55555555-5555-5555-5555-555555555555",
		"kind":            "home",
		"phone_number":    "n/a",
	}, 0)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if rec.String("phone_number") != models.MissingPhoneNumber {
		t.Fatalf("phone = %q", rec.String("phone_number"))
	}
}

func TestDeserializeMissingWireID(t *testing.T) {
	_, _, err := Deserialize(TypeContactList, map[string]any{"name": "News"}, 0)
	if err == nil {
		t.Fatal("expected an error for a row without its wire id")
	}
}

func TestDeserializeCampaignSummary(t *testing.T) {
	rec, _, err := Deserialize(TypeEmailCampaign, map[string]any{
		"campaign_id": "44444444-4444-4444-4444-444444444444",
		"unique_counts": map[string]any{
			"sends":  float64(120),
			"opens":  float64(48),
			"clicks": float64(7),
		},
	}, 0)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if rec.Scalars["sends"] != float64(120) || rec.Scalars["opens"] != float64(48) {
		t.Fatalf("counters = %#v", rec.Scalars)
	}
	if rec.String("current_status") != models.CampaignStatusDone {
		t.Fatalf("summary rows imply a sent campaign, status = %q", rec.String("current_status"))
	}
}

func TestDeserializeCampaignDetail(t *testing.T) {
	rec, bucket, err := Deserialize(TypeEmailCampaign, map[string]any{
		"campaign_id":    "44444444-4444-4444-4444-444444444444",
		"name":           "September newsletter",
		"current_status": "DRAFT",
		"campaign_activities": []any{
			map[string]any{
				"campaign_activity_id": "33333333-3333-3333-3333-333333333333",
				"role":                 models.RolePrimaryEmail,
			},
			map[string]any{
				"campaign_activity_id": "88888888-8888-8888-8888-888888888888",
				"role":                 models.RolePermalink,
			},
		},
	}, 0)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if rec.String("current_status") != models.CampaignStatusDraft {
		t.Fatalf("status = %q", rec.String("current_status"))
	}
	acts := bucket[TypeCampaignActivity]
	if len(acts) != 2 {
		t.Fatalf("activities = %d", len(acts))
	}
	if acts[0].Refs["campaign"].RemoteID != rec.RemoteID {
		t.Fatal("activity must point back at its campaign")
	}
}

func TestParseTimeVariants(t *testing.T) {
	want := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)
	for _, s := range []string{"2023-01-15T10:30:00Z", "2023-01-15T10:30:00.000Z"} {
		got, err := ParseTime(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q = %v", s, got)
		}
	}
}
