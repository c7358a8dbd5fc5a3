package activitymap

import (
	"context"
	"encoding/json"
	"time"

	authsync "github.com/goliatone/go-authsync"
	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the redis stream activity is appended to.
const DefaultStream = "authsync:activity"

// StreamSink appends normalized activity to a redis stream. The stream is
// capped approximately at MaxLen entries when MaxLen is positive.
type StreamSink struct {
	client  redis.Cmdable
	stream  string
	maxLen  int64
	options []Option
}

var _ authsync.ActivitySink = (*StreamSink)(nil)

func NewStreamSink(client redis.Cmdable, opts ...Option) *StreamSink {
	return &StreamSink{
		client:  client,
		stream:  DefaultStream,
		maxLen:  10000,
		options: opts,
	}
}

func (s *StreamSink) WithStream(stream string) *StreamSink {
	if stream != "" {
		s.stream = stream
	}
	return s
}

func (s *StreamSink) WithMaxLen(n int64) *StreamSink {
	s.maxLen = n
	return s
}

// Record implements authsync.ActivitySink.
func (s *StreamSink) Record(ctx context.Context, event authsync.ActivityEvent) error {
	record := Normalize(event, s.options...)

	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode activity metadata")
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"actor_id":    record.ActorID,
			"verb":        record.Verb,
			"object_type": record.ObjectType,
			"object_id":   record.ObjectID,
			"channel":     record.Channel,
			"metadata":    string(metadata),
			"occurred_at": record.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to append activity").
			WithMetadata(map[string]any{"stream": s.stream, "verb": record.Verb})
	}
	return nil
}

// Fanout records to every sink, returning the first error.
func Fanout(sinks ...authsync.ActivitySink) authsync.ActivitySink {
	return authsync.ActivitySinkFunc(func(ctx context.Context, event authsync.ActivityEvent) error {
		var first error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
