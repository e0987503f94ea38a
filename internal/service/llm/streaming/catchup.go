package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	mstream "github.com/haowjy/meridian-stream-go"

	llmModels "turnengine/internal/domain/models/llm"
	llmRepo "turnengine/internal/domain/repositories/llm"
)

// BuildCatchupFunc creates a catchup function that replays a turn's persisted blocks
// as SSE events. This is used by mstream to backfill a reconnecting (or first-time,
// already-complete) subscriber: one turn_start event (turn ID and model) comes first
// as event-0, then every persisted block replays as block_start,
// one block_delta carrying its full text_content/structured content, then block_stop,
// identical in shape to the events a live stream would have produced.
//
// It depends only on turnReader and serializer, not on a live Stream, so it stays
// usable after a turn's Stream has been evicted from the registry by retention.
func BuildCatchupFunc(turnReader llmRepo.TurnReader, serializer *llmModels.BlockSerializer, logger *slog.Logger) mstream.CatchupFunc {
	return func(streamID string, lastEventID string) ([]mstream.Event, error) {
		ctx := context.Background()
		turnID := streamID // streamID is the turnID

		logger.Debug("building catchup events",
			"turn_id", turnID,
			"last_event_id", lastEventID,
		)

		turn, err := turnReader.GetTurn(ctx, turnID)
		if err != nil {
			return nil, fmt.Errorf("failed to get turn: %w", err)
		}
		model := ""
		if turn.Model != nil {
			model = *turn.Model
		}

		blocks, err := turnReader.GetTurnBlocks(ctx, turnID)
		if err != nil {
			logger.Error("failed to get turn blocks for catchup",
				"turn_id", turnID,
				"error", err,
			)
			return nil, fmt.Errorf("failed to get turn blocks: %w", err)
		}

		startData, err := json.Marshal(llmModels.TurnStartEvent{TurnID: turnID, Model: model})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal turn_start: %w", err)
		}
		events := []mstream.Event{mstream.NewEvent(startData).WithType(llmModels.SSEEventTurnStart).WithID("event-0")}
		eventSequence := 1

		for i, block := range blocks {
			blockEvents := serializer.BlockToSSEEvents(&block, i)
			for _, ev := range blockEvents {
				events = append(events, ev.WithID(fmt.Sprintf("event-%d", eventSequence)))
				eventSequence++
			}
		}

		if lastEventID != "" {
			events = filterEventsAfter(events, lastEventID, logger)
		}

		logger.Debug("catchup events built",
			"turn_id", turnID,
			"last_event_id", lastEventID,
			"total_events", len(events),
		)

		return events, nil
	}
}

// filterEventsAfter filters events to only include those after lastEventID
func filterEventsAfter(events []mstream.Event, lastEventID string, logger *slog.Logger) []mstream.Event {
	// Parse lastEventID (format: "event-N")
	lastSeq := parseEventID(lastEventID)
	if lastSeq < 0 {
		logger.Warn("invalid last event ID format, returning all events",
			"last_event_id", lastEventID,
		)
		return events
	}

	// Filter events with sequence > lastSeq
	var filtered []mstream.Event
	for _, event := range events {
		eventSeq := parseEventID(event.ID)
		if eventSeq > lastSeq {
			filtered = append(filtered, event)
		}
	}

	return filtered
}

// parseEventID extracts the sequence number from an event ID (format: "event-N")
func parseEventID(eventID string) int {
	parts := strings.Split(eventID, "-")
	if len(parts) != 2 || parts[0] != "event" {
		return -1
	}

	seq, err := strconv.Atoi(parts[1])
	if err != nil {
		return -1
	}

	return seq
}
