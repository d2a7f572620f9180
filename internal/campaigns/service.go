package campaigns

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/atelierline/agency-backend/internal/contacts/domain"
	"github.com/atelierline/agency-backend/internal/mailer"
	"github.com/atelierline/agency-backend/internal/notifications"
	notifdomain "github.com/atelierline/agency-backend/internal/notifications/domain"
)

// ErrInvalidStaleness rejects a negative staleness window before any
// query runs.
var ErrInvalidStaleness = errors.New("staleness window must not be negative")

// ProspectStore is the contact-store slice the campaign uses: the
// selector queries (pure reads, safe to repeat) and the downstream
// status advance that makes a successful send visible to the next
// selection.
type ProspectStore interface {
	SelectStaleProspects(ctx context.Context, staleness time.Duration) ([]domain.Contact, error)
	CountStaleProspects(ctx context.Context, staleness time.Duration) (int, error)
	MarkContacted(ctx context.Context, id string) error
}

// EmailSender is the external send collaborator.
type EmailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Notifier delivers the completion notice to the triggering operator.
type Notifier interface {
	Deliver(ctx context.Context, event notifications.Event, audience notifications.Audience) (notifications.Result, error)
}

// Service runs rate-limited revival campaigns over stale prospects.
type Service struct {
	prospects ProspectStore
	sender    EmailSender
	notifier  Notifier
	runs      *RunLog

	defaultStaleness time.Duration
	sendDelay        time.Duration
}

type Options struct {
	DefaultStaleness time.Duration // zero means 7 days
	SendDelay        time.Duration // zero means 600ms
}

func NewService(prospects ProspectStore, sender EmailSender, notifier Notifier, runs *RunLog, opts Options) *Service {
	if opts.DefaultStaleness <= 0 {
		opts.DefaultStaleness = 7 * 24 * time.Hour
	}
	if opts.SendDelay <= 0 {
		opts.SendDelay = defaultSendDelay
	}
	return &Service{
		prospects:        prospects,
		sender:           sender,
		notifier:         notifier,
		runs:             runs,
		defaultStaleness: opts.DefaultStaleness,
		sendDelay:        opts.SendDelay,
	}
}

// CountStale is the dry-run preview: same filter as the campaign, no
// side effects. Zero is a valid outcome.
func (s *Service) CountStale(ctx context.Context, staleness time.Duration) (int, error) {
	staleness, err := s.window(staleness)
	if err != nil {
		return 0, err
	}
	return s.prospects.CountStaleProspects(ctx, staleness)
}

// Run executes a revival campaign: select the stale segment, send to
// each prospect strictly sequentially with the inter-item delay, advance
// each successfully contacted prospect's status, and record the run.
// triggeredBy, when set, receives a completion notification.
func (s *Service) Run(ctx context.Context, staleness time.Duration, triggeredBy string) (Summary, error) {
	staleness, err := s.window(staleness)
	if err != nil {
		return Summary{}, err
	}

	targets, err := s.prospects.SelectStaleProspects(ctx, staleness)
	if err != nil {
		return Summary{}, err
	}

	startedAt := time.Now().UTC()
	log.Printf("[info] operation=revival_campaign message=starting targets=%d delay=%s", len(targets), s.sendDelay)

	summary, itemErrs := Dispatch(ctx, targets, s.sendOne, DispatchOptions{Delay: s.sendDelay})

	s.record(ctx, &RunRecord{
		Kind:        "revival",
		TriggeredBy: triggeredBy,
		Staleness:   staleness.String(),
		StartedAt:   startedAt,
		FinishedAt:  time.Now().UTC(),
		Summary:     summary,
		Errors:      itemErrs,
	})

	if triggeredBy != "" && s.notifier != nil {
		s.notifyOperator(ctx, triggeredBy, summary)
	}

	log.Printf("[info] operation=revival_campaign message=finished sent=%d failed=%d total=%d",
		summary.Sent, summary.Failed, summary.Total)
	return summary, nil
}

// RunScheduled is the cron entry point: default window, no operator to
// notify.
func (s *Service) RunScheduled(ctx context.Context) (Summary, error) {
	return s.Run(ctx, 0, "")
}

// LastRun exposes the most recent run record for operators.
func (s *Service) LastRun(ctx context.Context) (*RunRecord, error) {
	if s.runs == nil {
		return nil, ErrNoRuns
	}
	return s.runs.Last(ctx)
}

func (s *Service) sendOne(ctx context.Context, c domain.Contact) error {
	err := s.sender.Send(ctx, mailer.Message{
		To:      c.Email,
		Subject: "Still thinking it over?",
		Body:    "Hi " + firstNonEmpty(c.DisplayName, "there") + ", we'd love to pick the conversation back up whenever you're ready.",
	})
	if err != nil {
		return err
	}

	// Advancing new to contacted is what keeps a re-run of the same
	// campaign from hitting this prospect's "new" bucket again. A failed
	// advance is logged, not treated as a failed send: the email went out.
	if err := s.prospects.MarkContacted(ctx, c.ID); err != nil {
		log.Printf("[warn] operation=revival_campaign contact=%s message=status advance failed error=%v", c.ID, err)
	}
	return nil
}

func (s *Service) window(staleness time.Duration) (time.Duration, error) {
	if staleness < 0 {
		return 0, ErrInvalidStaleness
	}
	if staleness == 0 {
		return s.defaultStaleness, nil
	}
	return staleness, nil
}

func (s *Service) record(ctx context.Context, rec *RunRecord) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(ctx, rec); err != nil {
		log.Printf("[warn] operation=revival_campaign message=run log write failed error=%v", err)
	}
}

func (s *Service) notifyOperator(ctx context.Context, operatorID string, summary Summary) {
	_, err := s.notifier.Deliver(ctx, notifications.Event{
		Type:  notifdomain.TypeSuccess,
		Title: "Revival campaign finished",
		Body:  "Campaign completed.",
		Metadata: map[string]any{
			"sent":   summary.Sent,
			"failed": summary.Failed,
			"total":  summary.Total,
		},
	}, notifications.SingleUser(operatorID))
	if err != nil {
		log.Printf("[warn] operation=revival_campaign message=operator notify failed error=%v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
