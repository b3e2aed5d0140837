package events

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
)

type EventFilter interface {
	Filter(record events.DynamoDBEventRecord) bool
	Apply(ctx context.Context, record events.DynamoDBEventRecord) error
}

// Process runs every record through each handler that accepts it. A failed
// record is logged and skipped so one bad item does not block the batch;
// the number of failures is returned.
func Process(ctx context.Context, records []events.DynamoDBEventRecord, handlers ...EventFilter) int {
	failures := 0
	for _, record := range records {
		for _, handler := range handlers {
			if !handler.Filter(record) {
				continue
			}
			if err := handler.Apply(ctx, record); err != nil {
				failures++
				log.Error().Err(err).
					Str("eventId", record.EventID).
					Str("eventName", record.EventName).
					Msg("failed to handle stream record")
				break
			}
		}
	}
	return failures
}
