package audit

import (
	"context"

	"github.com/alohawaii-travel/api/pkg/observability"
)

// LogRecorder writes audit events as structured log lines. It never fails;
// a nil logger makes it a no-op.
type LogRecorder struct {
	logger *observability.Logger
}

// NewLogRecorder creates a log-backed recorder.
func NewLogRecorder(logger *observability.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record emits one structured line per event.
func (r *LogRecorder) Record(ctx context.Context, event *Event) error {
	if r.logger == nil {
		return nil
	}
	fields := map[string]interface{}{
		"audit_type": string(event.Type),
		"status":     string(event.Status),
	}
	if event.ActorID != "" {
		fields["actor_id"] = event.ActorID
	}
	if event.ActorEmail != "" {
		fields["actor_email"] = event.ActorEmail
	}
	if event.SubjectID != "" {
		fields["subject_id"] = event.SubjectID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}
	r.logger.WithFields(fields).Info(event.Message)
	return nil
}

// Close is a no-op.
func (r *LogRecorder) Close() error { return nil }
