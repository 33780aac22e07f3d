package natsclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sifan077/curto/internal/app/model"
	"github.com/sifan077/curto/internal/app/telemetry"
)

// StreamManager is the part of nats.JetStreamContext used by EnsureStream.
type StreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// Publisher is the part of nats.JetStreamContext used by EventSink.
type Publisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// EnsureStream creates the link event stream when it does not exist yet. The
// stream captures every subject below subject.
func EnsureStream(js StreamManager, name, subject string) error {
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("nats: stream info: %w", err)
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subject + ".>"},
		MaxBytes: model.LinkStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("nats: create stream: %w", err)
	}
	return nil
}

// EventSink publishes link lifecycle events to JetStream. Store failures
// and timeouts are left to the metrics sink.
type EventSink struct {
	js      Publisher
	subject string
	logger  *zap.Logger
}

// NewEventSink returns a sink publishing under subject.
func NewEventSink(js Publisher, subject string, logger *zap.Logger) *EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = model.LinkStreamSubject
	}
	return &EventSink{js: js, subject: subject, logger: logger}
}

// Record implements telemetry.Sink. Publishing is asynchronous; failures are
// logged and never reach the caller.
func (s *EventSink) Record(e telemetry.Event) {
	var eventType string
	switch e.Kind {
	case telemetry.LinkCreated:
		eventType = model.LinkEventCreated
	case telemetry.LinkRedirected:
		eventType = model.LinkEventRedirected
	default:
		return
	}

	event := model.LinkEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		LinkID:    e.LinkID,
		TargetURL: e.TargetURL,
		Redirects: e.Redirects,
		Timestamp: e.At.UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode link event", zap.String("link_id", e.LinkID), zap.Error(err))
		return
	}

	subject := s.subject + "." + eventType
	if _, err := s.js.PublishAsync(subject, data, nats.MsgId(event.ID)); err != nil {
		s.logger.Warn("failed to publish link event",
			zap.String("subject", subject),
			zap.String("link_id", e.LinkID),
			zap.Error(err),
		)
	}
}
