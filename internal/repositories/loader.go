package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/conexio/contactsync/internal/models"
	"github.com/conexio/contactsync/internal/wire"
)

// LoadRecord reads one row into a generic record: scalars, remote id, and
// reference local ids. Children and membership sets are not attached; contact
// pushes go through LoadContactRecord.
func (s *Store) LoadRecord(ctx context.Context, entity string, localID int64) (*wire.Record, error) {
	spec, err := specFor(entity)
	if err != nil {
		return nil, err
	}
	if spec.parent != "" {
		return nil, fmt.Errorf("%s rows are not individually loadable", entity)
	}

	cols := append([]string{}, spec.scalars...)
	refFields := make([]string, 0, len(spec.refs))
	for field, col := range spec.refs {
		cols = append(cols, col)
		refFields = append(refFields, field)
	}
	cols = append(cols, "api_id::text")

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(cols, ", "), spec.table),
		localID,
	).Scan(ptrs...)
	if err != nil {
		return nil, fmt.Errorf("loading %s %d: %w", entity, localID, err)
	}

	rec := wire.NewRecord(entity)
	rec.LocalID = localID
	for i, name := range spec.scalars {
		if vals[i] != nil {
			rec.Scalars[name] = vals[i]
		}
	}
	for i, field := range refFields {
		if id, ok := vals[len(spec.scalars)+i].(int64); ok {
			rec.Refs[field] = wire.Ref{LocalID: id}
		}
	}
	if apiID, ok := vals[len(cols)-1].(string); ok {
		rec.RemoteID = apiID
	}
	return rec, nil
}

// LoadContactRecord assembles a contact with its dependent rows and the
// remote ids of its list memberships, ready for an outbound push.
func (s *Store) LoadContactRecord(ctx context.Context, localID int64) (*wire.Record, error) {
	g := &wire.ContactGraph{CustomRemote: map[int64]string{}}

	var c models.Contact
	err := s.pool.QueryRow(ctx, `
		SELECT id, api_id, email, first_name, last_name, job_title, company_name,
		       permission_to_send, create_source, update_source
		FROM contacts WHERE id = $1
	`, localID).Scan(&c.ID, &c.APIID, &c.Email, &c.FirstName, &c.LastName,
		&c.JobTitle, &c.CompanyName, &c.Permission, &c.CreateSource, &c.UpdateSource)
	if err != nil {
		return nil, fmt.Errorf("loading contact %d: %w", localID, err)
	}
	g.Contact = &c

	rows, err := s.pool.Query(ctx, `
		SELECT id, api_id, contact_id, content FROM contact_notes WHERE contact_id = $1 ORDER BY id
	`, localID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var n models.ContactNote
		if err := rows.Scan(&n.ID, &n.APIID, &n.ContactID, &n.Content); err != nil {
			rows.Close()
			return nil, err
		}
		g.Notes = append(g.Notes, &n)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, api_id, contact_id, kind, phone_number FROM contact_phone_numbers WHERE contact_id = $1 ORDER BY id
	`, localID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p models.ContactPhoneNumber
		if err := rows.Scan(&p.ID, &p.APIID, &p.ContactID, &p.Kind, &p.PhoneNumber); err != nil {
			rows.Close()
			return nil, err
		}
		g.PhoneNumbers = append(g.PhoneNumbers, &p)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, api_id, contact_id, kind, street, city, state, postal_code, country
		FROM contact_street_addresses WHERE contact_id = $1 ORDER BY id
	`, localID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var a models.ContactStreetAddress
		if err := rows.Scan(&a.ID, &a.APIID, &a.ContactID, &a.Kind, &a.Street,
			&a.City, &a.State, &a.PostalCode, &a.Country); err != nil {
			rows.Close()
			return nil, err
		}
		g.Addresses = append(g.Addresses, &a)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = s.pool.Query(ctx, `
		SELECT ccf.id, ccf.contact_id, ccf.custom_field_id, ccf.value, cf.api_id::text
		FROM contact_custom_fields ccf
		JOIN custom_fields cf ON cf.id = ccf.custom_field_id
		WHERE ccf.contact_id = $1 AND cf.api_id IS NOT NULL
		ORDER BY ccf.id
	`, localID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var v models.ContactCustomFieldValue
		var fieldAPIID string
		if err := rows.Scan(&v.ID, &v.ContactID, &v.CustomFieldID, &v.Value, &fieldAPIID); err != nil {
			rows.Close()
			return nil, err
		}
		g.CustomValues = append(g.CustomValues, &v)
		g.CustomRemote[v.CustomFieldID] = fieldAPIID
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	rows, err = s.pool.Query(ctx, `
		SELECT cl.api_id::text
		FROM contact_list_memberships m
		JOIN contact_lists cl ON cl.id = m.list_id
		WHERE m.contact_id = $1 AND cl.api_id IS NOT NULL
		ORDER BY cl.id
	`, localID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		g.ListRemoteIDs = append(g.ListRemoteIDs, id)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return wire.RecordFromContact(g), nil
}
