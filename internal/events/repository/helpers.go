package repository

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// marshalDocument encodes a JSON object column. A nil map is stored as NULL.
func marshalDocument(doc map[string]any) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal document")
	}
	return b, nil
}

// unmarshalDocument decodes a JSON object column. Numbers stay json.Number so integers
// beyond float64 precision survive the round trip.
func unmarshalDocument(b []byte) (map[string]any, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal document")
	}
	return doc, nil
}

// storedClaim returns the claim token update writes: its Claim when entering processing,
// otherwise none.
func storedClaim(update eventsDomain.StatusUpdate) uuid.NullUUID {
	if update.To != eventsDomain.EventStatusProcessing || update.Claim == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: update.Claim, Valid: true}
}

// checksClaim reports whether update only applies while its Claim is still held.
func checksClaim(update eventsDomain.StatusUpdate) bool {
	return update.To != eventsDomain.EventStatusProcessing && update.Claim != uuid.Nil
}

func statusStrings(statuses []eventsDomain.EventStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

func nullUUIDPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func nullTimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullInt64Ptr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// historyWhere builds the WHERE clause shared by List and Count.
func historyWhere(
	filter eventsDomain.HistoryFilter,
	placeholder func(n int) string,
	idArg func(uuid.UUID) any,
) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, placeholder(len(args))))
	}

	if filter.AppID != nil {
		add("source_app_id = %s", idArg(*filter.AppID))
	}
	if filter.EventType != "" {
		add("event_type = %s", filter.EventType)
	}
	if filter.Status != "" {
		add("status = %s", string(filter.Status))
	}
	if filter.StartDate != nil {
		add("created_at >= %s", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= %s", *filter.EndDate)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
