// Package queue carries run triggers on a redis stream consumed by a group
// of workers. Messages stay pending until acknowledged, so a worker that dies
// mid-run leaves its trigger to be reclaimed by another.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Defaults for stream and group names.
const (
	DefaultStream = "codeagent:runs"
	DefaultGroup  = "codeagent-workers"
)

// Event is one run trigger.
type Event struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// Delivery is an event read from the stream. Err is set when the message
// could not be decoded; such deliveries should be acknowledged and dropped.
type Delivery struct {
	MessageID string
	Event     Event
	Err       error
}

// ErrMalformed is wrapped by Delivery.Err for undecodable messages.
var ErrMalformed = errors.New("malformed trigger message")

// Queue publishes and consumes run triggers.
type Queue struct {
	client redis.UniversalClient
	stream string
	group  string
}

// Dial connects to redis at url and checks the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func New(client redis.UniversalClient, stream, group string) *Queue {
	if stream == "" {
		stream = DefaultStream
	}
	if group == "" {
		group = DefaultGroup
	}
	return &Queue{client: client, stream: stream, group: group}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", q.group, err)
	}
	return nil
}

// Publish appends a trigger to the stream. A missing event id is generated.
func (q *Queue) Publish(ctx context.Context, ev *Event) (string, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: 10000,
		Approx: true,
		Values: encode(*ev),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish trigger %s: %w", ev.ID, err)
	}
	return id, nil
}

// Read blocks up to block for new triggers addressed to this group.
func (q *Queue) Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]Delivery, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from %s: %w", q.stream, err)
	}

	var out []Delivery
	for _, s := range streams {
		for _, msg := range s.Messages {
			out = append(out, decode(msg))
		}
	}
	return out, nil
}

// Claim takes over triggers that another consumer left pending for at
// least minIdle.
func (q *Queue) Claim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Delivery, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim pending triggers: %w", err)
	}

	out := make([]Delivery, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, decode(msg))
	}
	return out, nil
}

// Touch resets the idle time of a trigger consumer is still handling, so
// Claim on other workers does not take it over.
func (q *Queue) Touch(ctx context.Context, consumer, messageID string) error {
	err := q.client.XClaimJustID(ctx, &redis.XClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  0,
		Messages: []string{messageID},
	}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to refresh %s: %w", messageID, err)
	}
	return nil
}

// Ack marks a trigger as handled.
func (q *Queue) Ack(ctx context.Context, messageID string) error {
	if err := q.client.XAck(ctx, q.stream, q.group, messageID).Err(); err != nil {
		return fmt.Errorf("failed to ack %s: %w", messageID, err)
	}
	return nil
}

func encode(ev Event) map[string]any {
	return map[string]any{
		"id":         ev.ID,
		"project_id": ev.ProjectID,
		"value":      ev.Value,
		"created_at": ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decode(msg redis.XMessage) Delivery {
	d := Delivery{MessageID: msg.ID}
	str := func(key string) string {
		s, _ := msg.Values[key].(string)
		return s
	}

	d.Event.ID = str("id")
	d.Event.ProjectID = str("project_id")
	d.Event.Value = str("value")
	if t, err := time.Parse(time.RFC3339Nano, str("created_at")); err == nil {
		d.Event.CreatedAt = t
	}

	switch {
	case d.Event.ID == "":
		d.Err = fmt.Errorf("%w %s: missing id", ErrMalformed, msg.ID)
	case d.Event.ProjectID == "":
		d.Err = fmt.Errorf("%w %s: missing project_id", ErrMalformed, msg.ID)
	}
	return d
}
