// Package codec converts todo items to and from their flat, persisted form.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/todolist/internal/model"
)

// TimeLayout is the timestamp format used in persisted records.
const TimeLayout = time.RFC3339Nano

var (
	// ErrMissingField marks a required field that is absent or blank.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidEnumValue marks a priority or status that is not a known name.
	ErrInvalidEnumValue = model.ErrInvalidEnumValue

	// ErrInvalidTimestamp marks a timestamp that is not RFC 3339.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// DecodeError reports which field of a record could not be decoded.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Value == "" {
		return fmt.Sprintf("decode %s: %s", e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s %q: %s", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Record is the flat form of a todo item. A nil field was absent from the
// stored data, which lets Decode tell "missing" apart from "empty".
type Record struct {
	ID        *string `json:"id" db:"id"`
	Title     *string `json:"title" db:"title"`
	Details   *string `json:"details" db:"details"`
	Priority  *string `json:"priority" db:"priority"`
	Status    *string `json:"status" db:"status"`
	Owner     *string `json:"owner" db:"owner"`
	CreatedAt *string `json:"created_at" db:"created_at"`
	UpdatedAt *string `json:"updated_at" db:"updated_at"`
}

// Encode flattens item. Every field of the result is set.
func Encode(item model.TodoItem) Record {
	return Record{
		ID:        str(item.ID),
		Title:     str(item.Title),
		Details:   str(item.Details),
		Priority:  str(item.Priority.String()),
		Status:    str(item.Status.String()),
		Owner:     str(item.Owner),
		CreatedAt: str(FormatTime(item.CreatedAt)),
		UpdatedAt: str(FormatTime(item.UpdatedAt)),
	}
}

// EncodeAll flattens items, preserving order.
func EncodeAll(items []model.TodoItem) []Record {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		out = append(out, Encode(it))
	}
	return out
}

// Decode rebuilds a todo item from rec.
//
// Title and owner are required. Details defaults to empty, priority to MID,
// status to PENDING. A missing id is replaced by a fresh UUID and missing
// timestamps by the current time.
func Decode(rec Record) (model.TodoItem, error) {
	return decode(rec, time.Now)
}

func decode(rec Record, now func() time.Time) (model.TodoItem, error) {
	item := model.TodoItem{
		Priority: model.PriorityMid,
		Status:   model.StatusPending,
	}

	if rec.Title == nil || strings.TrimSpace(*rec.Title) == "" {
		return model.TodoItem{}, &DecodeError{Field: "title", Err: ErrMissingField}
	}
	item.Title = *rec.Title

	if rec.Owner == nil || strings.TrimSpace(*rec.Owner) == "" {
		return model.TodoItem{}, &DecodeError{Field: "owner", Err: ErrMissingField}
	}
	item.Owner = *rec.Owner

	if rec.ID != nil && *rec.ID != "" {
		item.ID = *rec.ID
	} else {
		item.ID = uuid.New().String()
	}

	if rec.Details != nil {
		item.Details = *rec.Details
	}

	if rec.Priority != nil {
		p, err := parseExact(*rec.Priority, model.Priorities())
		if err != nil {
			return model.TodoItem{}, &DecodeError{Field: "priority", Value: *rec.Priority, Err: ErrInvalidEnumValue}
		}
		item.Priority = p
	}

	if rec.Status != nil {
		switch *rec.Status {
		case model.StatusPending.String():
			item.Status = model.StatusPending
		case model.StatusCompleted.String():
			item.Status = model.StatusCompleted
		default:
			return model.TodoItem{}, &DecodeError{Field: "status", Value: *rec.Status, Err: ErrInvalidEnumValue}
		}
	}

	var err error
	ts := now().UTC()
	if item.CreatedAt, err = decodeTime("created_at", rec.CreatedAt, ts); err != nil {
		return model.TodoItem{}, err
	}
	if item.UpdatedAt, err = decodeTime("updated_at", rec.UpdatedAt, ts); err != nil {
		return model.TodoItem{}, err
	}

	return item, nil
}

// DecodeAll decodes every record, keeping the valid items in order. The
// returned errors carry the record index.
func DecodeAll(recs []Record) ([]model.TodoItem, []error) {
	items := make([]model.TodoItem, 0, len(recs))
	var errs []error
	for i, rec := range recs {
		item, err := Decode(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		items = append(items, item)
	}
	return items, errs
}

// FormatTime renders t the way records store it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp. Offsets other than UTC are converted.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func decodeTime(field string, v *string, fallback time.Time) (time.Time, error) {
	if v == nil || *v == "" {
		return fallback, nil
	}
	t, err := ParseTime(*v)
	if err != nil {
		return time.Time{}, &DecodeError{Field: field, Value: *v, Err: ErrInvalidTimestamp}
	}
	return t, nil
}

// parseExact matches stored enum names exactly; user input goes through
// model.ParsePriority, which is case-insensitive.
func parseExact(name string, candidates []model.Priority) (model.Priority, error) {
	for _, p := range candidates {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, ErrInvalidEnumValue
}

func str(s string) *string { return &s }
