package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/share"
)

func (q *Queries) LogEvent(ctx context.Context, userID string, eventType string, payload interface{}) error {
	eventMsg := map[string]interface{}{
		"event_type": eventType,
		"payload":    payload,
	}
	eventBytes, err := json.Marshal(eventMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `INSERT INTO event_journal (user_id, event_type, payload) VALUES ($1, $2, $3)`
	_, err = q.db.Exec(ctx, query, userID, eventType, eventBytes)
	if err != nil {
		return err
	}

	return nil
}

type Event struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload"`
}

func (q *Queries) GetEventsSince(ctx context.Context, userID string, sinceID int64) ([]Event, error) {
	query := `
		SELECT id, event_type, event_time, payload
		FROM event_journal
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT 100
	`
	rows, err := q.db.Query(ctx, query, userID, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.EventTime,
			&event.Payload,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		return []Event{}, nil
	}

	return events, nil
}

// ShareEventRecorder returns an after-listener persisting share events to
// the journal of the share owner and, when different, the initiator.
func ShareEventRecorder(store *Store, log zerolog.Logger) share.ListenFunc {
	return func(ctx context.Context, ev share.Event) {
		users := []string{ev.Share.ShareOwner}
		if ev.Share.SharedBy != "" && ev.Share.SharedBy != ev.Share.ShareOwner {
			users = append(users, ev.Share.SharedBy)
		}
		for _, uid := range users {
			if err := store.LogEvent(ctx, uid, string(ev.Kind), ev.Share); err != nil {
				log.Warn().Err(err).Str("event", string(ev.Kind)).Str("user", uid).Msg("cannot journal share event")
			}
		}
	}
}
