package repo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"call-intake/internal/lead"

	"github.com/google/uuid"
)

// prepare fills identifiers and timestamps the caller may have left empty.
func prepare(update CallerUpdate) (CallerUpdate, error) {
	update.PhoneNumber = strings.TrimSpace(update.PhoneNumber)
	if update.PhoneNumber == "" {
		return update, fmt.Errorf("upsert caller: empty phone number")
	}
	if update.At.IsZero() {
		update.At = time.Now()
	}
	update.At = update.At.UTC()
	if update.Call.ID == "" {
		update.Call.ID = randomUUID()
	}
	if update.Call.Date.IsZero() {
		update.Call.Date = update.At
	}
	return update, nil
}

// sentinelSQL is the SQL list literal of placeholder values.
var sentinelSQL = "('', '" + lead.Unknown + "', '" + lead.NA + "', '" + lead.Uncertain + "')"

// keepKnownSQL builds "col = CASE ... END" so that a placeholder arriving in
// the excluded row leaves the stored value untouched.
func keepKnownSQL(table, excluded string, fields []profileField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf(
			"%[1]s = CASE WHEN %[3]s.%[1]s IN %[4]s THEN %[2]s.%[1]s ELSE %[3]s.%[1]s END",
			f.column, table, excluded, sentinelSQL))
	}
	return strings.Join(parts, ",\n    ")
}

func encodeCall(entry CallEntry) (string, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode call entry: %w", err)
	}
	return string(data), nil
}

func decodeCalls(raw []byte) ([]CallEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var calls []CallEntry
	if err := json.Unmarshal(raw, &calls); err != nil {
		return nil, fmt.Errorf("decode call history: %w", err)
	}
	return calls, nil
}

func randomUUID() string {
	return uuid.NewString()
}
