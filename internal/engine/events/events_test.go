package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/models"
)

type recordingPublisher struct {
	name   string
	err    error
	events []*models.Event
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(ctx context.Context, event *models.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(models.EventAlertCreated, "ten_1", map[string]string{"alert_id": "alr_1"})
	assert.True(t, strings.HasPrefix(evt.ID, "evt_"))
	assert.Equal(t, models.EventAlertCreated, evt.Type)
	assert.Equal(t, "ten_1", evt.TenantID)
	assert.NotZero(t, evt.Timestamp)
}

func TestMulti_ContinuesAfterFailure(t *testing.T) {
	failing := &recordingPublisher{name: "failing", err: errors.New("broker down")}
	ok := &recordingPublisher{name: "ok"}

	m := NewMulti(failing, nil, ok)
	assert.Equal(t, 2, m.Len())

	err := m.Publish(context.Background(), NewEvent(models.EventDocketProcessed, "ten_1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing: broker down")
	assert.Len(t, ok.events, 1)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	assert.Nil(t, NewKafkaPublisher(config.KafkaConfig{Topic: "t"}))

	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "docketflow.events"}

	evt := NewEvent(models.EventDocketProcessed, "ten_42", map[string]string{"docket_id": "dkt_1"})
	require.NoError(t, p.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ten_42", string(msg.Key))

	var decoded models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
	assert.Equal(t, models.EventDocketProcessed, decoded.Type)
}

func TestPubSubPublisher(t *testing.T) {
	ctx := context.Background()

	p, err := NewPubSubPublisher(ctx, config.PubSubConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	admin, err := pubsub.NewClient(ctx, "docketflow-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = admin.CreateTopic(ctx, "docket-events")
	require.NoError(t, err)

	p, err = NewPubSubPublisher(ctx, config.PubSubConfig{ProjectID: "docketflow-test", Topic: "docket-events"}, option.WithGRPCConn(conn))
	require.NoError(t, err)

	evt := NewEvent(models.EventAlertCreated, "ten_1", map[string]string{"alert_id": "alr_1"})
	require.NoError(t, p.Publish(ctx, evt))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.EventAlertCreated, msgs[0].Attributes["event"])
	assert.Equal(t, "ten_1", msgs[0].Attributes["tenant_id"])
}
