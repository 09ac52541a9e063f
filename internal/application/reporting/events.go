package reporting

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/OperaLab/internal/application/validation"
)

// EventEvaluationCompleted is the type of EvaluationEvent.
const EventEvaluationCompleted = "evaluation.completed"

// EvaluationEvent announces a finished evaluation.
type EvaluationEvent struct {
	Type        string            `json:"type"`
	ReportID    string            `json:"report_id"`
	Source      string            `json:"source,omitempty"`
	Batch       string            `json:"batch"`
	RecordCount int               `json:"record_count"`
	Samples     map[string]string `json:"samples"`
	Regulation  string            `json:"regulation,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewEvaluationEvent summarises r.
func NewEvaluationEvent(r *validation.Report) EvaluationEvent {
	ev := EvaluationEvent{
		Type:        EventEvaluationCompleted,
		ReportID:    r.ID,
		Source:      r.Source,
		Batch:       r.Batch.String(),
		RecordCount: r.RecordCount,
		Samples:     make(map[string]string, len(r.Samples)),
		CreatedAt:   r.CreatedAt,
	}
	for _, s := range r.Samples {
		ev.Samples[s.SampleGroupID] = s.Status.String()
	}
	if r.Legislation != nil {
		ev.Regulation = r.Legislation.Regulation
	}
	return ev
}

// Publisher delivers encoded events keyed by report id.  The Kafka producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []byte) error { return nil }

// NoopPublisher discards events.
func NoopPublisher() Publisher { return noopPublisher{} }

func encodeEvent(ev EvaluationEvent) ([]byte, error) {
	return json.Marshal(ev)
}
