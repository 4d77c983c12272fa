package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEnumValue is returned when a priority or status name is not recognized.
var ErrInvalidEnumValue = errors.New("invalid enum value")

// Priority is the urgency of a todo item.
type Priority int

// Priority values. The zero value is not a valid priority.
const (
	PriorityHigh Priority = iota + 1
	PriorityMid
	PriorityLow
)

var priorityNames = map[Priority]string{
	PriorityHigh: "HIGH",
	PriorityMid:  "MID",
	PriorityLow:  "LOW",
}

// Priorities lists every priority from most to least urgent.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMid, PriorityLow}
}

// String returns the persisted name of the priority ("HIGH", "MID", "LOW").
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("priority %d: %w", int(p), ErrInvalidEnumValue)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePriority parses a priority name. Matching ignores case and
// surrounding whitespace.
func ParsePriority(s string) (Priority, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for p, n := range priorityNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("priority %q: %w", s, ErrInvalidEnumValue)
}

// Status is the completion state of a todo item.
type Status int

// Status values. A todo only ever moves from pending to completed.
const (
	StatusPending Status = iota + 1
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusPending:   "PENDING",
	StatusCompleted: "COMPLETED",
}

// String returns the persisted name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("status %d: %w", int(s), ErrInvalidEnumValue)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status name, ignoring case.
func ParseStatus(s string) (Status, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for st, n := range statusNames {
		if n == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("status %q: %w", s, ErrInvalidEnumValue)
}

// TodoItem is a task owned by a single user.
type TodoItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Details   string    `json:"details"`
	Priority  Priority  `json:"priority"`
	Status    Status    `json:"status"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCompleted reports whether the item has been marked completed.
func (t TodoItem) IsCompleted() bool { return t.Status == StatusCompleted }

// OwnedBy reports whether username owns the item. An empty username
// never owns anything.
func (t TodoItem) OwnedBy(username string) bool {
	return username != "" && t.Owner == username
}

// UpdateRequest lists the fields a caller may change on an existing todo.
// Nil fields are left untouched. Status only changes through mark-completed.
type UpdateRequest struct {
	Title    *string
	Details  *string
	Priority *Priority
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateRequest) IsEmpty() bool {
	return r.Title == nil && r.Details == nil && r.Priority == nil
}

// Apply returns a copy of item with the requested fields replaced.
func (r UpdateRequest) Apply(item TodoItem) TodoItem {
	if r.Title != nil {
		item.Title = strings.TrimSpace(*r.Title)
	}
	if r.Details != nil {
		item.Details = *r.Details
	}
	if r.Priority != nil {
		item.Priority = *r.Priority
	}
	return item
}
