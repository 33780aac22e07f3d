package natsclient

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifan077/curto/config"
	"github.com/sifan077/curto/internal/app/model"
	"github.com/sifan077/curto/internal/app/telemetry"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) PublishAsync(subj string, data []byte, _ ...nats.PubOpt) (nats.PubAckFuture, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subj, data: data})
	return nil, nil
}

type fakeStreams struct {
	infoErr error
	added   *nats.StreamConfig
}

func (f *fakeStreams) StreamInfo(string, ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &nats.StreamInfo{}, nil
}

func (f *fakeStreams) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.added = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestEventSinkPublishesLifecycleEvents(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewEventSink(pub, "links.events", nil)
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	sink.Record(telemetry.Event{Kind: telemetry.LinkCreated, LinkID: "abc", TargetURL: "https://github.com/", At: at})
	sink.Record(telemetry.Event{Kind: telemetry.LinkRedirected, LinkID: "abc", Redirects: 4, At: at})
	sink.Record(telemetry.Event{Kind: telemetry.StoreTimeout, Op: telemetry.OpFind})

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "links.events.created", pub.msgs[0].subject)
	assert.Equal(t, "links.events.redirected", pub.msgs[1].subject)

	var event model.LinkEvent
	require.NoError(t, json.Unmarshal(pub.msgs[1].data, &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, model.LinkEventRedirected, event.Type)
	assert.Equal(t, "abc", event.LinkID)
	assert.Equal(t, int64(4), event.Redirects)
	assert.True(t, at.Equal(event.Timestamp))
}

func TestEventSinkSwallowsPublishErrors(t *testing.T) {
	sink := NewEventSink(&fakePublisher{err: nats.ErrNoResponders}, "", nil)
	assert.NotPanics(t, func() {
		sink.Record(telemetry.Event{Kind: telemetry.LinkCreated, LinkID: "abc"})
	})
}

func TestEnsureStream(t *testing.T) {
	existing := &fakeStreams{}
	require.NoError(t, EnsureStream(existing, "LINKS", "links.events"))
	assert.Nil(t, existing.added)

	missing := &fakeStreams{infoErr: nats.ErrStreamNotFound}
	require.NoError(t, EnsureStream(missing, "LINKS", "links.events"))
	require.NotNil(t, missing.added)
	assert.Equal(t, "LINKS", missing.added.Name)
	assert.Equal(t, []string{"links.events.>"}, missing.added.Subjects)

	broken := &fakeStreams{infoErr: errors.New("no jetstream")}
	assert.Error(t, EnsureStream(broken, "LINKS", "links.events"))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "nats://localhost:4222", URL(config.NATSConfig{}))
	assert.Equal(t, "nats://mq:5222", URL(config.NATSConfig{Host: "mq", Port: 5222}))
}
