package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/devmojahid/restu-food/pkg/kafka"
	"github.com/devmojahid/restu-food/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func TestNotificationBuilders(t *testing.T) {
	added := ItemAdded("sess-1", "1", "Burger", "A")
	assert.Equal(t, KindItemAdded, added.Kind)
	assert.Equal(t, "Burger added to cart", added.Message)
	assert.Equal(t, "A", added.VendorID)

	removed := ItemRemoved("sess-1", "2", "")
	assert.Equal(t, KindItemRemoved, removed.Kind)
	assert.Equal(t, "item 2 removed from cart", removed.Message)

	cleared := CartCleared("sess-1")
	assert.Equal(t, KindCartCleared, cleared.Kind)
	assert.Empty(t, cleared.ItemID)
}

func TestProducer_Notify_PublishesToTopic(t *testing.T) {
	tests := []struct {
		n     Notification
		topic string
	}{
		{ItemAdded("sess-1", "1", "Burger", "A"), TopicItemAdded},
		{ItemRemoved("sess-1", "1", "Burger"), TopicItemRemoved},
		{CartCleared("sess-1"), TopicCartCleared},
	}

	for _, tt := range tests {
		t.Run(string(tt.n.Kind), func(t *testing.T) {
			pub := &mockPublisher{}
			pub.On("Publish", mock.Anything, tt.topic, mock.MatchedBy(func(e *pkgkafka.Event) bool {
				var got Notification
				require.NoError(t, json.Unmarshal(e.Data, &got))
				return e.Type == tt.topic &&
					e.Key == "sess-1" &&
					e.AggregateType == AggregateTypeCart &&
					e.Source == SourceCartService &&
					e.CorrelationID == "corr-1" &&
					got == tt.n
			})).Return(nil).Once()

			p := NewProducer(pub, logger.NewWithWriter("test", "error", &bytes.Buffer{}))
			ctx := logger.WithCorrelationID(context.Background(), "corr-1")
			p.Notify(ctx, tt.n)

			pub.AssertExpectations(t)
		})
	}
}

func TestProducer_Notify_SwallowsErrors(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, TopicItemAdded, mock.Anything).Return(errors.New("broker unavailable"))

	var buf bytes.Buffer
	p := NewProducer(pub, logger.NewWithWriter("test", "warn", &buf))

	assert.NotPanics(t, func() {
		p.Notify(context.Background(), ItemAdded("sess-1", "1", "Burger", "A"))
	})
	assert.Contains(t, buf.String(), "failed to publish cart notification")
	assert.Contains(t, buf.String(), "broker unavailable")
}

func TestProducer_Notify_UnknownKind(t *testing.T) {
	pub := &mockPublisher{}
	var buf bytes.Buffer
	p := NewProducer(pub, logger.NewWithWriter("test", "warn", &buf))

	p.Notify(context.Background(), Notification{Kind: "bogus", SessionID: "sess-1"})

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, buf.String(), "unknown notification kind")
}

func TestLogNotifier_Notify(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logger.NewWithWriter("test", "info", &buf))

	n.Notify(context.Background(), ItemAdded("sess-1", "1", "Burger", "A"))

	assert.Contains(t, buf.String(), "Burger added to cart")
	assert.Contains(t, buf.String(), `"session_id":"sess-1"`)
}

func TestTopics_FollowNamingScheme(t *testing.T) {
	assert.Equal(t, pkgkafka.Topic("cart", "item_added"), TopicItemAdded)
	assert.Equal(t, pkgkafka.Topic("cart", "item_removed"), TopicItemRemoved)
	assert.Equal(t, pkgkafka.Topic("cart", "cleared"), TopicCartCleared)
}
