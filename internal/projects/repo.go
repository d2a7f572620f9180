package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierline/agency-backend/internal/projects/domain"
)

const projectCols = `id::text, owner_id::text, name, stage, delivered_at, created_at, updated_at`

const briefCols = `id::text, project_id::text, version, content, status, coalesce(client_comment,''), created_at, updated_at`

// Repo owns every write to project stage and brief status. No other
// component touches those columns.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// Create inserts a new project in the onboarding stage.
func (r *Repo) Create(ctx context.Context, ownerID, name string) (*domain.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner id required")
	}

	const q = `
insert into projects (owner_id, name, stage)
values ($1::uuid, $2, 'onboarding')
returning ` + projectCols + `;
`
	var p domain.Project
	err := r.db.QueryRow(ctx, q, ownerID, name).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Stage, &p.DeliveredAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a single non-deleted project.
func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	const q = `
select ` + projectCols + `
from projects
where id = $1::uuid and deleted_at is null;
`
	var p domain.Project
	err := r.db.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Stage, &p.DeliveredAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// LatestBrief returns the highest version for a project, or ErrNotFound
// when the project has no brief yet.
func (r *Repo) LatestBrief(ctx context.Context, projectID string) (*domain.Brief, error) {
	const q = `
select ` + briefCols + `
from briefs
where project_id = $1::uuid
order by version desc
limit 1;
`
	var b domain.Brief
	err := r.db.QueryRow(ctx, q, projectID).Scan(
		&b.ID, &b.ProjectID, &b.Version, &b.Content, &b.Status, &b.ClientComment, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

const insertBriefQ = `
insert into briefs (project_id, version, content, status)
select
	$1::uuid,
	(select coalesce(max(version), 0) + 1 from briefs where project_id = $1::uuid),
	$2,
	'sent'
where not exists (
	select 1 from briefs where project_id = $1::uuid and status = 'sent'
)
returning ` + briefCols + `;
`

// AppendBrief creates the next brief version with status sent. The
// outstanding-sent guard sits inside the insert itself: the statement
// matches zero rows while a sent version exists, so of two concurrent
// submissions exactly one inserts. The version number comes from max+1
// under a unique (project_id, version) constraint; a concurrent append
// that loses that race on 23505 retries with a fresh max and then runs
// into the guard.
func (r *Repo) AppendBrief(ctx context.Context, projectID, content string) (*domain.Brief, error) {
	for i := 0; i < 5; i++ {
		var b domain.Brief
		err := r.db.QueryRow(ctx, insertBriefQ, projectID, content).Scan(
			&b.ID, &b.ProjectID, &b.Version, &b.Content, &b.Status, &b.ClientComment, &b.CreatedAt, &b.UpdatedAt,
		)
		if err == nil {
			return &b, nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidState
		}

		// unique violation on (project_id, version), retry
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to allocate brief version")
}

// ApproveLatestBrief marks the latest sent brief approved and moves the
// project to design in one transaction. The precondition (latest version,
// status sent) sits in the UPDATE's where clause, so of two concurrent
// approve/reject calls exactly one finds a matching row.
func (r *Repo) ApproveLatestBrief(ctx context.Context, projectID string) (*domain.Brief, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const qBrief = `
update briefs
set status = 'approved', updated_at = now()
where project_id = $1::uuid
  and version = (select max(version) from briefs where project_id = $1::uuid)
  and status = 'sent'
returning ` + briefCols + `;
`
	var b domain.Brief
	err = tx.QueryRow(ctx, qBrief, projectID).Scan(
		&b.ID, &b.ProjectID, &b.Version, &b.Content, &b.Status, &b.ClientComment, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidState
		}
		return nil, err
	}

	const qStage = `
update projects
set stage = 'design', updated_at = now()
where id = $1::uuid and deleted_at is null;
`
	ct, err := tx.Exec(ctx, qStage, projectID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

// RejectLatestBrief marks the latest sent brief rejected and stores the
// client's comment. Project stage is deliberately untouched.
func (r *Repo) RejectLatestBrief(ctx context.Context, projectID, comment string) (*domain.Brief, error) {
	const q = `
update briefs
set status = 'rejected', client_comment = nullif($2,''), updated_at = now()
where project_id = $1::uuid
  and version = (select max(version) from briefs where project_id = $1::uuid)
  and status = 'sent'
returning ` + briefCols + `;
`
	var b domain.Brief
	err := r.db.QueryRow(ctx, q, projectID, comment).Scan(
		&b.ID, &b.ProjectID, &b.Version, &b.Content, &b.Status, &b.ClientComment, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidState
		}
		return nil, err
	}
	return &b, nil
}

// AppendBriefSetStage appends a new sent brief version and moves the
// project stage in the same transaction. Used by the modification-request
// flow (feedback becomes the new version's content, stage goes to build).
// The outstanding-sent guard applies here too: a project never holds two
// undecided briefs, whichever path appends.
func (r *Repo) AppendBriefSetStage(ctx context.Context, projectID, content string, stage domain.Stage) (*domain.Brief, error) {
	for i := 0; i < 5; i++ {
		b, err := r.appendBriefSetStageOnce(ctx, projectID, content, stage)
		if err == nil {
			return b, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to allocate brief version")
}

func (r *Repo) appendBriefSetStageOnce(ctx context.Context, projectID, content string, stage domain.Stage) (*domain.Brief, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var b domain.Brief
	err = tx.QueryRow(ctx, insertBriefQ, projectID, content).Scan(
		&b.ID, &b.ProjectID, &b.Version, &b.Content, &b.Status, &b.ClientComment, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidState
		}
		return nil, err
	}

	const qStage = `
update projects
set stage = $2, updated_at = now()
where id = $1::uuid and deleted_at is null;
`
	ct, err := tx.Exec(ctx, qStage, projectID, stage)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkDelivered sets the terminal stage and stamps delivered_at exactly
// once. The delivered guard lives in the where clause: a repeat call
// (including a concurrent one) matches zero rows, returns the terminal
// state unchanged and reports transitioned=false so no second fan-out
// fires.
func (r *Repo) MarkDelivered(ctx context.Context, projectID string) (*domain.Project, bool, error) {
	const q = `
update projects
set stage = 'delivered', delivered_at = now(), updated_at = now()
where id = $1::uuid and deleted_at is null and stage <> 'delivered'
returning ` + projectCols + `;
`
	var p domain.Project
	err := r.db.QueryRow(ctx, q, projectID).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Stage, &p.DeliveredAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == nil {
		return &p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Zero rows: either already delivered or missing.
	existing, gerr := r.GetByID(ctx, projectID)
	if gerr != nil {
		return nil, false, gerr
	}
	return existing, false, nil
}
