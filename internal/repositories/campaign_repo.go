package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conexio/contactsync/internal/models"
)

// CampaignRepo serves the publisher's campaign and activity queries.
type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

func (r *CampaignRepo) Campaign(ctx context.Context, id int64) (*models.EmailCampaign, error) {
	var c models.EmailCampaign
	err := r.pool.QueryRow(ctx, `
		SELECT id, api_id, name, current_status, scheduled_datetime,
		       sends, opens, clicks, forwards, optouts, abuse, bounces, not_opened
		FROM email_campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.APIID, &c.Name, &c.CurrentStatus, &c.ScheduledAt,
		&c.Sends, &c.Opens, &c.Clicks, &c.Forwards, &c.OptOuts, &c.Abuse,
		&c.Bounces, &c.NotOpened)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("campaign %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// PrimaryActivity returns the campaign's primary email activity and the
// remote ids of its recipient lists. A missing activity returns nil without
// an error so the publisher can report the precondition itself.
func (r *CampaignRepo) PrimaryActivity(ctx context.Context, campaignID int64) (*models.CampaignActivity, []string, error) {
	var a models.CampaignActivity
	err := r.pool.QueryRow(ctx, `
		SELECT id, api_id, campaign_id, role, from_name, from_email, reply_to_email,
		       subject, preheader, html_content, format_type
		FROM campaign_activities WHERE campaign_id = $1 AND role = $2
	`, campaignID, models.RolePrimaryEmail).Scan(
		&a.ID, &a.APIID, &a.CampaignID, &a.Role, &a.FromName, &a.FromEmail,
		&a.ReplyToEmail, &a.Subject, &a.Preheader, &a.HTMLContent, &a.FormatType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT cl.api_id::text
		FROM activity_contact_lists acl
		JOIN contact_lists cl ON cl.id = acl.list_id
		WHERE acl.activity_id = $1 AND cl.api_id IS NOT NULL
		ORDER BY cl.id
	`, a.ID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var listIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, nil, err
		}
		listIDs = append(listIDs, id)
	}
	return &a, listIDs, rows.Err()
}

func (r *CampaignRepo) SetCampaignRemote(ctx context.Context, id int64, apiID uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_campaigns SET api_id = $1, current_status = $2 WHERE id = $3
	`, apiID, status, id)
	return err
}

func (r *CampaignRepo) SetActivityRemote(ctx context.Context, id int64, apiID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaign_activities SET api_id = $1 WHERE id = $2
	`, apiID, id)
	return err
}

func (r *CampaignRepo) SetStatus(ctx context.Context, campaignID int64, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE email_campaigns SET current_status = $1 WHERE id = $2
	`, status, campaignID)
	return err
}
