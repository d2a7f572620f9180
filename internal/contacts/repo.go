package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atelierline/agency-backend/internal/contacts/domain"
)

// Repo provides persistence operations for contact records.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

type UpsertContact struct {
	FirebaseUID string
	Email       string
	DisplayName string
}

// Ensure upserts a contact by firebase uid and returns its id. New
// contacts enter as prospects with status "new"; existing rows only
// refresh their profile fields.
func (r *Repo) Ensure(ctx context.Context, u UpsertContact) (string, error) {
	if u.FirebaseUID == "" {
		return "", fmt.Errorf("firebase_uid required")
	}

	const q = `
insert into contacts (firebase_uid, email, display_name, role, prospect_status, updated_at)
values ($1, nullif($2,''), nullif($3,''), 'prospect', 'new', now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, contacts.email),
  display_name = coalesce(excluded.display_name, contacts.display_name),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRowContext(ctx, q, u.FirebaseUID, u.Email, u.DisplayName).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// GetByID returns a single contact.
func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	const q = `
select id::text, firebase_uid, coalesce(email,''), coalesce(display_name,''),
       role, coalesce(prospect_status,''), created_at, updated_at
from contacts
where id = $1::uuid;
`
	var c domain.Contact
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.FirebaseUID, &c.Email, &c.DisplayName,
		&c.Role, &c.ProspectStatus, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByFirebaseUID resolves a contact from its auth identity.
func (r *Repo) GetByFirebaseUID(ctx context.Context, fuid string) (*domain.Contact, error) {
	const q = `
select id::text, firebase_uid, coalesce(email,''), coalesce(display_name,''),
       role, coalesce(prospect_status,''), created_at, updated_at
from contacts
where firebase_uid = $1;
`
	var c domain.Contact
	err := r.db.QueryRowContext(ctx, q, fuid).Scan(
		&c.ID, &c.FirebaseUID, &c.Email, &c.DisplayName,
		&c.Role, &c.ProspectStatus, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListStaffIDs returns the ids of every staff contact. Resolved fresh on
// each call: staff membership can change between events.
func (r *Repo) ListStaffIDs(ctx context.Context) ([]string, error) {
	const q = `
select id::text
from contacts
where role = 'staff'
order by created_at;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SelectStaleProspects returns prospects still sitting in the early
// funnel (new or contacted) whose record is strictly older than the
// staleness window. Zero rows is a valid outcome. Read-only; safe to
// call for both the dry-run count and the actual campaign run.
func (r *Repo) SelectStaleProspects(ctx context.Context, staleness time.Duration) ([]domain.Contact, error) {
	cutoff := time.Now().Add(-staleness)

	const q = `
select id::text, firebase_uid, coalesce(email,''), coalesce(display_name,''),
       role, coalesce(prospect_status,''), created_at, updated_at
from contacts
where role = 'prospect'
  and prospect_status in ('new', 'contacted')
  and created_at < $1
order by created_at;
`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Contact, 0, 16)
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(
			&c.ID, &c.FirebaseUID, &c.Email, &c.DisplayName,
			&c.Role, &c.ProspectStatus, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountStaleProspects is the dry-run preview over the same filter.
func (r *Repo) CountStaleProspects(ctx context.Context, staleness time.Duration) (int, error) {
	cutoff := time.Now().Add(-staleness)

	const q = `
select count(*)
from contacts
where role = 'prospect'
  and prospect_status in ('new', 'contacted')
  and created_at < $1;
`
	var n int
	if err := r.db.QueryRowContext(ctx, q, cutoff).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkContacted advances a prospect from new to contacted after a
// successful revival send, which takes it out of the next campaign's
// "new" bucket.
func (r *Repo) MarkContacted(ctx context.Context, id string) error {
	const q = `
update contacts
set prospect_status = 'contacted', updated_at = now()
where id = $1::uuid and prospect_status = 'new';
`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
