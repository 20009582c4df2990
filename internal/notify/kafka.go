package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
)

const EventType = "scheduler.notice"

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Payload is the JSON body published for every notice.
type Payload struct {
	Kind       booking.NoticeKind `json:"kind"`
	Message    string             `json:"message"`
	BusinessID string             `json:"business_id,omitempty"`
	At         time.Time          `json:"at"`
}

// Kafka publishes notices to a topic, keyed by business so one business's
// notices stay ordered.
type Kafka struct {
	writer  MessageWriter
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewKafka(writer MessageWriter, logger zerolog.Logger) *Kafka {
	return &Kafka{writer: writer, logger: logger, timeout: 5 * time.Second, now: time.Now}
}

// NewKafkaWriter builds a writer for a comma separated broker list.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(SplitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func (k *Kafka) Notify(ctx context.Context, kind booking.NoticeKind, message string) {
	businessID := BusinessFrom(ctx)
	body, err := json.Marshal(Payload{Kind: kind, Message: message, BusinessID: businessID, At: k.now().UTC()})
	if err != nil {
		k.logger.Error().Err(err).Msg("marshal notice")
		return
	}
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(uuid.NewString())},
		{Key: "event_type", Value: []byte(EventType)},
	}
	headers = InjectTraceHeaders(ctx, headers)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
	defer cancel()
	if err := k.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(businessID),
		Value:   body,
		Headers: headers,
	}); err != nil {
		k.logger.Warn().Err(err).Str("business_id", businessID).Msg("publish notice failed")
	}
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// InjectTraceHeaders appends W3C trace context headers to Kafka headers.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
