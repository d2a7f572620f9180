package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/atelierline/agency-backend/internal/campaigns"
)

// Scheduler runs the revival campaign on a cron spec.
type Scheduler struct {
	service *campaigns.Service
	spec    string
	c       *cron.Cron
}

func NewScheduler(service *campaigns.Service, spec string) *Scheduler {
	return &Scheduler{service: service, spec: spec}
}

// Start initializes cron tasks
func (s *Scheduler) Start() {
	s.c = cron.New(cron.WithSeconds())

	_, err := s.c.AddFunc(s.spec, func() {
		runScheduledCampaign(s.service)
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Printf("Cron scheduler started (revival campaign at %q)", s.spec)
	s.c.Start()
}

// Stop halts the scheduler; a run in flight finishes its current item.
func (s *Scheduler) Stop() {
	if s.c != nil {
		s.c.Stop()
	}
}

func runScheduledCampaign(service *campaigns.Service) {
	log.Println("Scheduled revival campaign started...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	summary, err := service.RunScheduled(ctx)
	if err != nil {
		log.Printf("Scheduled revival campaign failed: %v", err)
		return
	}

	log.Printf("Scheduled revival campaign completed: sent=%d failed=%d total=%d at %s",
		summary.Sent, summary.Failed, summary.Total, time.Now().Format(time.RFC1123))
}
