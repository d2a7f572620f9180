package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	runKeyPrefix = "campaign:run:"     // campaign:run:{run_id}
	lastRunKey   = "campaign:last_run" // run_id of the most recent run
	runTTL       = 30 * 24 * time.Hour // run records are observability data, not history
)

var ErrNoRuns = errors.New("no campaign runs recorded")

// RunRecord is what the run log retains about one campaign execution.
type RunRecord struct {
	RunID       string      `json:"run_id"`
	Kind        string      `json:"kind"`
	TriggeredBy string      `json:"triggered_by,omitempty"`
	Staleness   string      `json:"staleness"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	Summary     Summary     `json:"summary"`
	Errors      []ItemError `json:"errors,omitempty"`
}

// RunLog keeps recent campaign run records in Redis with a TTL.
type RunLog struct {
	client *redis.Client
}

func NewRunLog(client *redis.Client) *RunLog {
	return &RunLog{client: client}
}

// Save writes the record and repoints the last-run marker atomically.
func (l *RunLog) Save(ctx context.Context, rec *RunRecord) error {
	if rec.RunID == "" {
		rec.RunID = uuid.New().String()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	pipe := l.client.Pipeline()
	pipe.Set(ctx, runKeyPrefix+rec.RunID, data, runTTL)
	pipe.Set(ctx, lastRunKey, rec.RunID, runTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save run record: %w", err)
	}
	return nil
}

// Last returns the most recent run record.
func (l *RunLog) Last(ctx context.Context) (*RunRecord, error) {
	runID, err := l.client.Get(ctx, lastRunKey).Result()
	if err == redis.Nil {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("get last run id: %w", err)
	}

	return l.Get(ctx, runID)
}

// Get returns one run record by id.
func (l *RunLog) Get(ctx context.Context, runID string) (*RunRecord, error) {
	data, err := l.client.Get(ctx, runKeyPrefix+runID).Result()
	if err == redis.Nil {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("get run record: %w", err)
	}

	var rec RunRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}
	return &rec, nil
}
