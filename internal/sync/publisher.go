package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conexio/contactsync/internal/models"
	"github.com/conexio/contactsync/internal/remote"
	"github.com/conexio/contactsync/internal/wire"
)

// CampaignStore is the publisher's port onto campaign storage.
type CampaignStore interface {
	Campaign(ctx context.Context, id int64) (*models.EmailCampaign, error)
	// PrimaryActivity returns the campaign's primary email activity and the
	// remote ids of its recipient lists.
	PrimaryActivity(ctx context.Context, campaignID int64) (*models.CampaignActivity, []string, error)
	SetCampaignRemote(ctx context.Context, id int64, apiID uuid.UUID, status string) error
	SetActivityRemote(ctx context.Context, id int64, apiID uuid.UUID) error
	SetStatus(ctx context.Context, campaignID int64, status string) error
}

// Publisher drives the campaign lifecycle against the remote service:
// DRAFT on creation, SCHEDULED and back, with sent states only ever reported
// by the remote side.
type Publisher struct {
	client            *remote.Client
	store             CampaignStore
	margin            time.Duration
	previewRecipients []string
	previewMessage    string
	log               *zap.Logger
}

func NewPublisher(client *remote.Client, store CampaignStore, margin time.Duration, previewRecipients []string, previewMessage string, log *zap.Logger) *Publisher {
	return &Publisher{
		client:            client,
		store:             store,
		margin:            margin,
		previewRecipients: previewRecipients,
		previewMessage:    previewMessage,
		log:               log,
	}
}

// Create pushes a draft campaign remotely in a single call carrying the
// nested primary activity, then stores both server-issued ids. The campaign
// must not exist remotely yet and must have its primary activity saved
// locally first.
func (p *Publisher) Create(ctx context.Context, campaignID int64) error {
	campaign, err := p.store.Campaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.APIID != nil {
		return precondition("publish", "campaign %d already exists remotely", campaignID)
	}
	activity, listIDs, err := p.store.PrimaryActivity(ctx, campaignID)
	if err != nil {
		return err
	}
	if activity == nil {
		return precondition("publish", "campaign %d has no primary email activity", campaignID)
	}

	activityBody, err := wire.Serialize(wire.RecordFromActivity(activity, "", listIDs), wire.SelectEditable)
	if err != nil {
		return err
	}
	body := map[string]any{
		"name":                      campaign.Name,
		"email_campaign_activities": []map[string]any{activityBody},
	}

	campaignEnt, _ := wire.Lookup(wire.TypeEmailCampaign)
	raw, err := p.client.Post(ctx, p.client.URL(campaignEnt.Endpoint, "", ""), body)
	if err != nil {
		return err
	}

	var resp struct {
		CampaignID string `json:"campaign_id"`
		Activities []struct {
			ActivityID string `json:"campaign_activity_id"`
			Role       string `json:"role"`
		} `json:"campaign_activities"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decoding campaign response: %w", err)
	}
	campaignAPIID, err := uuid.Parse(resp.CampaignID)
	if err != nil {
		return fmt.Errorf("campaign response id: %w", err)
	}
	var activityAPIID uuid.UUID
	for _, a := range resp.Activities {
		if a.Role == models.RolePrimaryEmail {
			if activityAPIID, err = uuid.Parse(a.ActivityID); err != nil {
				return fmt.Errorf("activity response id: %w", err)
			}
		}
	}
	if activityAPIID == uuid.Nil {
		return fmt.Errorf("campaign response has no primary email activity")
	}

	if err := p.store.SetCampaignRemote(ctx, campaignID, campaignAPIID, models.CampaignStatusDraft); err != nil {
		return err
	}
	if err := p.store.SetActivityRemote(ctx, activity.ID, activityAPIID); err != nil {
		return err
	}
	p.log.Info("campaign created remotely",
		zap.Int64("campaign_id", campaignID),
		zap.String("api_id", campaignAPIID.String()),
	)
	return nil
}

// Schedule pushes the current content and then books the send. The scheduled
// time must be set and at least the margin in the future, so the remote
// service cannot reject it for being too close. Scheduling an already
// SCHEDULED campaign reissues the booking alone: its content is already up
// remotely, so only the date moves.
func (p *Publisher) Schedule(ctx context.Context, campaignID int64) error {
	campaign, activity, listIDs, err := p.remoteCampaign(ctx, campaignID, "schedule")
	if err != nil {
		return err
	}
	rescheduling := campaign.CurrentStatus == models.CampaignStatusScheduled
	if !rescheduling && !models.IsValidCampaignTransition(campaign.CurrentStatus, models.CampaignStatusScheduled) {
		return precondition("schedule", "campaign %d is %s", campaignID, campaign.CurrentStatus)
	}
	if campaign.ScheduledAt == nil {
		return precondition("schedule", "campaign %d has no scheduled time", campaignID)
	}
	if campaign.ScheduledAt.Before(time.Now().Add(p.margin)) {
		return precondition("schedule", "campaign %d scheduled time must be at least %s out", campaignID, p.margin)
	}

	if !rescheduling {
		if err := p.pushContent(ctx, campaign, activity, listIDs); err != nil {
			return err
		}
	}

	activityEnt, _ := wire.Lookup(wire.TypeCampaignActivity)
	body := map[string]any{"scheduled_date": wire.FormatTime(*campaign.ScheduledAt)}
	if _, err := p.client.Post(ctx, p.client.URL(activityEnt.Endpoint, activity.APIID.String(), "/schedules"), body); err != nil {
		return err
	}
	return p.store.SetStatus(ctx, campaignID, models.CampaignStatusScheduled)
}

// Unschedule cancels a booked send and returns the campaign to DRAFT.
func (p *Publisher) Unschedule(ctx context.Context, campaignID int64) error {
	campaign, activity, _, err := p.remoteCampaign(ctx, campaignID, "unschedule")
	if err != nil {
		return err
	}
	if campaign.CurrentStatus != models.CampaignStatusScheduled {
		return precondition("unschedule", "campaign %d is %s", campaignID, campaign.CurrentStatus)
	}

	activityEnt, _ := wire.Lookup(wire.TypeCampaignActivity)
	_, err = p.client.Delete(ctx, p.client.URL(activityEnt.Endpoint, activity.APIID.String(), "/schedules"))
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return err
	}
	return p.store.SetStatus(ctx, campaignID, models.CampaignStatusDraft)
}

// UpdateContent replaces the remote content with the local activity. A
// scheduled campaign is transparently unscheduled first and rescheduled
// after, so callers see the status they started with.
func (p *Publisher) UpdateContent(ctx context.Context, campaignID int64, preview bool) error {
	campaign, activity, listIDs, err := p.remoteCampaign(ctx, campaignID, "update content")
	if err != nil {
		return err
	}

	wasScheduled := campaign.CurrentStatus == models.CampaignStatusScheduled
	if wasScheduled {
		if err := p.Unschedule(ctx, campaignID); err != nil {
			return err
		}
	}
	if err := p.pushContent(ctx, campaign, activity, listIDs); err != nil {
		return err
	}
	if preview {
		if err := p.SendPreview(ctx, campaignID); err != nil {
			return err
		}
	}
	if wasScheduled {
		return p.Schedule(ctx, campaignID)
	}
	return nil
}

// SendPreview sends a test rendering to the configured recipients.
func (p *Publisher) SendPreview(ctx context.Context, campaignID int64) error {
	_, activity, _, err := p.remoteCampaign(ctx, campaignID, "preview")
	if err != nil {
		return err
	}
	activityEnt, _ := wire.Lookup(wire.TypeCampaignActivity)
	body := map[string]any{
		"email_addresses":  p.previewRecipients,
		"personal_message": p.previewMessage,
	}
	_, err = p.client.Post(ctx, p.client.URL(activityEnt.Endpoint, activity.APIID.String(), "/tests"), body)
	return err
}

// Rename pushes the local name. Past creation the wire protocol accepts
// nothing but the name on the campaign resource itself.
func (p *Publisher) Rename(ctx context.Context, campaignID int64) error {
	campaign, err := p.store.Campaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.APIID == nil {
		return precondition("rename", "campaign %d was never created remotely", campaignID)
	}
	campaignEnt, _ := wire.Lookup(wire.TypeEmailCampaign)
	_, err = p.client.Patch(ctx,
		p.client.URL(campaignEnt.Endpoint, campaign.APIID.String(), ""),
		map[string]any{"name": campaign.Name},
	)
	return err
}

// pushContent replaces the whole remote activity with the local editable
// state, recipient lists included.
func (p *Publisher) pushContent(ctx context.Context, campaign *models.EmailCampaign, activity *models.CampaignActivity, listIDs []string) error {
	rec := wire.RecordFromActivity(activity, campaign.APIID.String(), listIDs)
	body, err := wire.Serialize(rec, wire.SelectEditable)
	if err != nil {
		return err
	}
	activityEnt, _ := wire.Lookup(wire.TypeCampaignActivity)
	_, err = p.client.Put(ctx, p.client.URL(activityEnt.Endpoint, activity.APIID.String(), ""), body)
	return err
}

// remoteCampaign loads a campaign plus its primary activity and checks both
// exist remotely.
func (p *Publisher) remoteCampaign(ctx context.Context, campaignID int64, op string) (*models.EmailCampaign, *models.CampaignActivity, []string, error) {
	campaign, err := p.store.Campaign(ctx, campaignID)
	if err != nil {
		return nil, nil, nil, err
	}
	if campaign.APIID == nil {
		return nil, nil, nil, precondition(op, "campaign %d was never created remotely", campaignID)
	}
	activity, listIDs, err := p.store.PrimaryActivity(ctx, campaignID)
	if err != nil {
		return nil, nil, nil, err
	}
	if activity == nil || activity.APIID == nil {
		return nil, nil, nil, precondition(op, "campaign %d has no remote primary activity", campaignID)
	}
	return campaign, activity, listIDs, nil
}
