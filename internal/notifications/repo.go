package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierline/agency-backend/internal/notifications/domain"
)

// Repo persists notification records.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Create inserts one notification for one recipient.
func (r *Repo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.UserID == "" {
		return nil, fmt.Errorf("user id required")
	}

	meta := n.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	const q = `
insert into notifications (user_id, project_id, type, title, body, metadata)
values ($1::uuid, nullif($2,'')::uuid, $3, $4, $5, $6)
returning id::text, created_at;
`
	out := *n
	err = r.db.QueryRow(ctx, q, n.UserID, n.ProjectID, n.Type, n.Title, n.Body, metaJSON).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListForUser returns the recipient's notifications, newest first.
func (r *Repo) ListForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
select id::text, user_id::text, coalesce(project_id::text,''), type, title, body, metadata, read, created_at
from notifications
where user_id = $1::uuid
order by created_at desc
limit $2;
`
	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Notification, 0, 16)
	for rows.Next() {
		var n domain.Notification
		var metaJSON []byte
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.ProjectID, &n.Type, &n.Title, &n.Body, &metaJSON, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &n.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag. Only the recipient may do this; the
// user id is part of the predicate so one user can't read another's
// notifications away.
func (r *Repo) MarkRead(ctx context.Context, userID, notificationID string) error {
	const q = `
update notifications
set read = true
where id = $1::uuid and user_id = $2::uuid;
`
	ct, err := r.db.Exec(ctx, q, notificationID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UnreadCount derives the unread counter from the rows themselves, so it
// can never drift from the underlying records.
func (r *Repo) UnreadCount(ctx context.Context, userID string) (int, error) {
	const q = `
select count(*)
from notifications
where user_id = $1::uuid and read = false;
`
	var n int
	if err := r.db.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
