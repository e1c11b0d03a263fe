package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/events"
	"github.com/conexio/contactsync/internal/models"
	"github.com/conexio/contactsync/internal/remote"
	"github.com/conexio/contactsync/internal/sync"
	"github.com/conexio/contactsync/internal/wire"
)

type memCampaignStore struct {
	campaign *models.EmailCampaign
	activity *models.CampaignActivity
	lists    []string
}

func (s *memCampaignStore) Campaign(ctx context.Context, id int64) (*models.EmailCampaign, error) {
	if s.campaign == nil || s.campaign.ID != id {
		return nil, fmt.Errorf("campaign %d not found", id)
	}
	return s.campaign, nil
}

func (s *memCampaignStore) PrimaryActivity(ctx context.Context, campaignID int64) (*models.CampaignActivity, []string, error) {
	return s.activity, s.lists, nil
}

func (s *memCampaignStore) SetCampaignRemote(ctx context.Context, id int64, apiID uuid.UUID, status string) error {
	s.campaign.APIID = &apiID
	s.campaign.CurrentStatus = status
	return nil
}

func (s *memCampaignStore) SetActivityRemote(ctx context.Context, id int64, apiID uuid.UUID) error {
	s.activity.APIID = &apiID
	return nil
}

func (s *memCampaignStore) SetStatus(ctx context.Context, campaignID int64, status string) error {
	s.campaign.CurrentStatus = status
	return nil
}

func testPublisher(baseURL string, store sync.CampaignStore) (*sync.Engine, *sync.Publisher) {
	log := zap.NewNop()
	limiter := remote.NewLimiter(1000, time.Second)
	client := remote.NewClient(baseURL, "/v3", limiter, nil, log)
	engine := sync.NewEngine(client, sync.NewFetcher(client, log), nil, 500, log)
	publisher := sync.NewPublisher(client, store, 30*time.Minute, nil, "", log)
	return engine, publisher
}

// Campaign creation must go through the publisher, which posts the name
// together with the nested primary activity; the generic write path would
// send a bare campaign body the remote service rejects.
func TestDispatchCampaignCreateUsesPublisher(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v3/emails" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"campaign_id":"44444444-4444-4444-4444-444444444444","current_status":"DRAFT","campaign_activities":[{"campaign_activity_id":"33333333-3333-3333-3333-333333333333","role":"primary_email"}]}`)
	}))
	defer srv.Close()

	store := &memCampaignStore{
		campaign: &models.EmailCampaign{
			ID: 2, Name: "September newsletter",
			CurrentStatus: models.CampaignStatusNone,
		},
		activity: &models.CampaignActivity{
			ID: 3, CampaignID: 2, Role: models.RolePrimaryEmail,
			FromName: "Marketing", FromEmail: "news@example.com",
			ReplyToEmail: "news@example.com", Subject: "Hello",
			HTMLContent: "<html></html>", FormatType: models.FormatTypeModernCustom,
		},
		lists: []string{"11111111-1111-1111-1111-111111111111"},
	}

	engine, publisher := testPublisher(srv.URL, store)
	req := events.SyncRequest{Entity: wire.TypeEmailCampaign, Op: events.OpCreate, LocalID: 2}
	if err := dispatch(context.Background(), engine, publisher, nil, req); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	acts, ok := gotBody["email_campaign_activities"].([]any)
	if !ok || len(acts) != 1 {
		t.Fatalf("activities = %#v, the create call must nest the primary activity", gotBody["email_campaign_activities"])
	}
	if store.campaign.CurrentStatus != models.CampaignStatusDraft {
		t.Fatalf("status = %s", store.campaign.CurrentStatus)
	}
	if store.activity.APIID == nil {
		t.Fatal("activity remote id not stored")
	}
}

func TestDispatchCampaignRename(t *testing.T) {
	apiID := uuid.MustParse("44444444-4444-4444-4444-444444444444")

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/v3/emails/"+apiID.String() {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprintf(w, `{"campaign_id":"%s","name":"Renamed"}`, apiID)
	}))
	defer srv.Close()

	store := &memCampaignStore{
		campaign: &models.EmailCampaign{
			ID: 2, APIID: &apiID, Name: "Renamed",
			CurrentStatus: models.CampaignStatusDraft,
		},
	}

	engine, publisher := testPublisher(srv.URL, store)
	req := events.SyncRequest{Entity: wire.TypeEmailCampaign, Op: events.OpRename, LocalID: 2}
	if err := dispatch(context.Background(), engine, publisher, nil, req); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(gotBody) != 1 || gotBody["name"] != "Renamed" {
		t.Fatalf("body = %#v", gotBody)
	}
}

func TestDispatchRejectsUnknownCampaignOp(t *testing.T) {
	store := &memCampaignStore{
		campaign: &models.EmailCampaign{ID: 2, CurrentStatus: models.CampaignStatusDraft},
	}
	engine, publisher := testPublisher("https://api.example.com", store)

	req := events.SyncRequest{Entity: wire.TypeEmailCampaign, Op: events.OpMemberships, LocalID: 2}
	var pre *sync.PreconditionError
	if err := dispatch(context.Background(), engine, publisher, nil, req); !errors.As(err, &pre) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}
