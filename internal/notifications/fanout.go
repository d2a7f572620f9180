package notifications

import (
	"context"
	"log"

	"github.com/atelierline/agency-backend/internal/notifications/domain"
)

// Event is one occurrence worth telling people about: a kind, display
// payload and optional project tag. The audience is supplied separately
// so the same event shape serves staff broadcasts and single-recipient
// messages alike.
type Event struct {
	Type      domain.Type
	Title     string
	Body      string
	ProjectID string
	Metadata  map[string]any
}

// Audience resolves to a concrete, finite recipient list at call time.
// Selectors are funcs rather than cached lists: staff membership can
// change between two events.
type Audience func(ctx context.Context) ([]string, error)

// SingleUser is the one-recipient audience.
func SingleUser(userID string) Audience {
	return func(context.Context) ([]string, error) {
		return []string{userID}, nil
	}
}

// StaffLister is the slice of the contact store the fan-out needs to
// resolve a staff broadcast.
type StaffLister interface {
	ListStaffIDs(ctx context.Context) ([]string, error)
}

// AllStaff re-queries the staff role on every resolution.
func AllStaff(staff StaffLister) Audience {
	return func(ctx context.Context) ([]string, error) {
		return staff.ListStaffIDs(ctx)
	}
}

// Store is the persistence slice the fan-out writes through.
type Store interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
}

// Failure records one recipient whose notification could not be written.
type Failure struct {
	RecipientID string `json:"recipient_id"`
	Error       string `json:"error"`
}

// Result is the aggregate outcome of one fan-out call.
type Result struct {
	CreatedCount int       `json:"created_count"`
	Failures     []Failure `json:"failures,omitempty"`
}

// Fanout writes one notification per member of a resolved audience.
type Fanout struct {
	store Store
}

func NewFanout(store Store) *Fanout {
	return &Fanout{store: store}
}

// Deliver resolves the audience and writes one record per recipient. A
// failed write is logged and recorded, then the loop moves on: one
// recipient's failure never blocks the rest, and nothing is retried.
// Resolving the audience itself is the only fatal path.
func (f *Fanout) Deliver(ctx context.Context, event Event, audience Audience) (Result, error) {
	recipients, err := audience(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, recipientID := range recipients {
		_, err := f.store.Create(ctx, &domain.Notification{
			UserID:    recipientID,
			ProjectID: event.ProjectID,
			Type:      event.Type,
			Title:     event.Title,
			Body:      event.Body,
			Metadata:  event.Metadata,
		})
		if err != nil {
			log.Printf("[warn] operation=notification_fanout recipient=%s error=%v", recipientID, err)
			res.Failures = append(res.Failures, Failure{RecipientID: recipientID, Error: err.Error()})
			continue
		}
		res.CreatedCount++
	}

	return res, nil
}
