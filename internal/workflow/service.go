package workflow

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/atelierline/agency-backend/internal/auth"
	"github.com/atelierline/agency-backend/internal/notifications"
	notifdomain "github.com/atelierline/agency-backend/internal/notifications/domain"
	"github.com/atelierline/agency-backend/internal/projects/domain"
)

// ProjectStore is the persistence slice the state machine drives. Every
// stage and brief-status mutation in the system goes through these
// operations; the guarded ones are atomic (precondition checked and
// applied in a single transaction) so concurrent actors race to exactly
// one winner.
type ProjectStore interface {
	Create(ctx context.Context, ownerID, name string) (*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	LatestBrief(ctx context.Context, projectID string) (*domain.Brief, error)
	AppendBrief(ctx context.Context, projectID, content string) (*domain.Brief, error)
	ApproveLatestBrief(ctx context.Context, projectID string) (*domain.Brief, error)
	RejectLatestBrief(ctx context.Context, projectID, comment string) (*domain.Brief, error)
	AppendBriefSetStage(ctx context.Context, projectID, content string, stage domain.Stage) (*domain.Brief, error)
	MarkDelivered(ctx context.Context, projectID string) (*domain.Project, bool, error)
}

// Notifier is the fan-out contract consumed by the state machine.
type Notifier interface {
	Deliver(ctx context.Context, event notifications.Event, audience notifications.Audience) (notifications.Result, error)
}

// Service is the lifecycle state machine: it owns when a project's stage
// may change and who must be told about it.
type Service struct {
	projects ProjectStore
	notifier Notifier
	staff    notifications.StaffLister
}

func NewService(projects ProjectStore, notifier Notifier, staff notifications.StaffLister) *Service {
	return &Service{
		projects: projects,
		notifier: notifier,
		staff:    staff,
	}
}

// CreateProject opens a project in the onboarding stage for a contact.
func (s *Service) CreateProject(ctx context.Context, actor auth.Actor, ownerID, name string) (*domain.Project, error) {
	if !auth.CanCreateProject(actor) {
		return nil, auth.ErrUnauthorized
	}

	p, err := s.projects.Create(ctx, ownerID, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, notifications.Event{
		Type:      notifdomain.TypeOnboardingUpdate,
		Title:     "Welcome aboard",
		Body:      "Your project " + p.Name + " has entered onboarding.",
		ProjectID: p.ID,
	}, notifications.SingleUser(p.OwnerID))

	return p, nil
}

// GetProject returns a project together with its latest brief, if any.
func (s *Service) GetProject(ctx context.Context, actor auth.Actor, projectID string) (*domain.Project, *domain.Brief, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CanViewProject(actor, p.OwnerID) {
		return nil, nil, auth.ErrUnauthorized
	}

	b, err := s.projects.LatestBrief(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return p, nil, nil
		}
		return nil, nil, err
	}
	return p, b, nil
}

// SubmitBrief appends the next brief version with status sent. It
// refuses while the previous version is still awaiting a decision, so a
// project can never hold two outstanding sent briefs. The store enforces
// that guard atomically with the insert; checking it here first would
// only reopen the race between two concurrent submissions.
func (s *Service) SubmitBrief(ctx context.Context, actor auth.Actor, projectID, content string) (*domain.Brief, error) {
	if !auth.CanSubmitBrief(actor) {
		return nil, auth.ErrUnauthorized
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	b, err := s.projects.AppendBrief(ctx, projectID, content)
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, notifications.Event{
		Type:      notifdomain.TypeOnboardingUpdate,
		Title:     "New brief to review",
		Body:      "A new brief (v" + strconv.Itoa(b.Version) + ") is awaiting your approval.",
		ProjectID: p.ID,
		Metadata:  map[string]any{"brief_version": b.Version},
	}, notifications.SingleUser(p.OwnerID))

	return b, nil
}

// ApproveBrief lets the owner approve the latest sent brief; the project
// advances to design in the same transaction as the status flip.
func (s *Service) ApproveBrief(ctx context.Context, actor auth.Actor, projectID string) (*domain.Brief, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !auth.CanDecideBrief(actor, p.OwnerID) {
		return nil, auth.ErrUnauthorized
	}

	return s.projects.ApproveLatestBrief(ctx, projectID)
}

// RejectBrief records the owner's rejection and comment on the latest
// sent brief. Rejection is a terminal, comment-only action: the project
// stage stays exactly where it was.
func (s *Service) RejectBrief(ctx context.Context, actor auth.Actor, projectID, comment string) (*domain.Brief, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !auth.CanDecideBrief(actor, p.OwnerID) {
		return nil, auth.ErrUnauthorized
	}

	return s.projects.RejectLatestBrief(ctx, projectID, comment)
}

// RequestModification lets the owner send a project under review back to
// build. The feedback text becomes the content of a fresh sent brief
// version, and every staff member is notified.
func (s *Service) RequestModification(ctx context.Context, actor auth.Actor, projectID, feedback string) (*domain.Brief, notifications.Result, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, notifications.Result{}, err
	}
	if !auth.CanDecideBrief(actor, p.OwnerID) {
		return nil, notifications.Result{}, auth.ErrUnauthorized
	}

	b, err := s.projects.AppendBriefSetStage(ctx, projectID, feedback, domain.StageBuild)
	if err != nil {
		return nil, notifications.Result{}, err
	}

	res := s.deliver(ctx, notifications.Event{
		Type:      notifdomain.TypeSystem,
		Title:     "Modification requested",
		Body:      "The client requested changes on " + p.Name + " (brief v" + strconv.Itoa(b.Version) + ").",
		ProjectID: p.ID,
		Metadata:  map[string]any{"brief_version": b.Version},
	}, notifications.AllStaff(s.staff))

	return b, res, nil
}

// ValidateDelivery is the owner's sign-off on the finished work. The
// stage becomes delivered and delivered_at is stamped exactly once;
// repeating the call returns the same terminal state and fans out
// nothing, so staff hear about each delivery once.
func (s *Service) ValidateDelivery(ctx context.Context, actor auth.Actor, projectID string) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !auth.CanDecideBrief(actor, p.OwnerID) {
		return nil, auth.ErrUnauthorized
	}

	delivered, transitioned, err := s.projects.MarkDelivered(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if transitioned {
		s.deliver(ctx, notifications.Event{
			Type:      notifdomain.TypeSystem,
			Title:     "Delivery validated",
			Body:      "The client validated delivery of " + delivered.Name + ".",
			ProjectID: delivered.ID,
		}, notifications.AllStaff(s.staff))
	}

	return delivered, nil
}

// deliver runs a fan-out after a committed state change. The transition
// already happened, so a notification problem is logged and surfaced in
// the result, never turned into a caller-facing failure.
func (s *Service) deliver(ctx context.Context, event notifications.Event, audience notifications.Audience) notifications.Result {
	res, err := s.notifier.Deliver(ctx, event, audience)
	if err != nil {
		log.Printf("[warn] operation=workflow_notify title=%q error=%v", event.Title, err)
		return notifications.Result{}
	}
	if len(res.Failures) > 0 {
		log.Printf("[warn] operation=workflow_notify title=%q created=%d failed=%d",
			event.Title, res.CreatedCount, len(res.Failures))
	}
	return res
}
