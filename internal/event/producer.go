package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/devmojahid/restu-food/pkg/kafka"
	"github.com/devmojahid/restu-food/pkg/logger"
)

// Kafka topic constants for cart notifications.
const (
	TopicItemAdded   = pkgkafka.TopicPrefix + ".cart.item_added"
	TopicItemRemoved = pkgkafka.TopicPrefix + ".cart.item_removed"
	TopicCartCleared = pkgkafka.TopicPrefix + ".cart.cleared"
)

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from the cart service.
const SourceCartService = "cart-service"

// Kind identifies what happened to the cart.
type Kind string

const (
	KindItemAdded   Kind = "item_added"
	KindItemRemoved Kind = "item_removed"
	KindCartCleared Kind = "cart_cleared"
)

// Notification is a user-facing confirmation of a cart change.
type Notification struct {
	Kind      Kind   `json:"kind"`
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id,omitempty"`
	ItemName  string `json:"item_name,omitempty"`
	VendorID  string `json:"vendor_id,omitempty"`
	Message   string `json:"message"`
}

// ItemAdded builds the notification for a successful add.
func ItemAdded(sessionID, itemID, itemName, vendorID string) Notification {
	return Notification{
		Kind:      KindItemAdded,
		SessionID: sessionID,
		ItemID:    itemID,
		ItemName:  itemName,
		VendorID:  vendorID,
		Message:   fmt.Sprintf("%s added to cart", displayName(itemName, itemID)),
	}
}

// ItemRemoved builds the notification for a removal.
func ItemRemoved(sessionID, itemID, itemName string) Notification {
	return Notification{
		Kind:      KindItemRemoved,
		SessionID: sessionID,
		ItemID:    itemID,
		ItemName:  itemName,
		Message:   fmt.Sprintf("%s removed from cart", displayName(itemName, itemID)),
	}
}

// CartCleared builds the notification for an emptied cart.
func CartCleared(sessionID string) Notification {
	return Notification{
		Kind:      KindCartCleared,
		SessionID: sessionID,
		Message:   "cart cleared",
	}
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return "item " + id
}

func topicFor(kind Kind) (string, error) {
	switch kind {
	case KindItemAdded:
		return TopicItemAdded, nil
	case KindItemRemoved:
		return TopicItemRemoved, nil
	case KindCartCleared:
		return TopicCartCleared, nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}
}

// Publisher sends an event envelope to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart notifications to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new notification producer for the cart service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Notify publishes n. Failures are logged and never returned; the channel is
// fire-and-forget.
func (p *Producer) Notify(ctx context.Context, n Notification) {
	if err := p.publish(ctx, n); err != nil {
		p.logger.WarnContext(ctx, "failed to publish cart notification",
			slog.String("kind", string(n.Kind)),
			slog.String("session_id", n.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Producer) publish(ctx context.Context, n Notification) error {
	topic, err := topicFor(n.Kind)
	if err != nil {
		return err
	}

	event, err := pkgkafka.NewEvent(topic, n.SessionID, AggregateTypeCart, SourceCartService, n)
	if err != nil {
		return fmt.Errorf("create %s event: %w", n.Kind, err)
	}
	event.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", n.Kind, err)
	}

	p.logger.DebugContext(ctx, "published cart notification",
		slog.String("topic", topic),
		slog.String("session_id", n.SessionID),
	)

	return nil
}

// LogNotifier writes notifications to the structured log. It is used when
// Kafka is disabled.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n at info level.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	l.logger.InfoContext(ctx, n.Message,
		slog.String("kind", string(n.Kind)),
		slog.String("session_id", n.SessionID),
		slog.String("item_id", n.ItemID),
	)
}
