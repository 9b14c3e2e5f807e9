package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/schedule"
)

// Assignment is a timed peer-evaluation window within a class.
// StartAt and EndAt are stored as UTC instants; both bounds are inclusive.
type Assignment struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	Name      string    `json:"name"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (a Assignment) StatusAt(now time.Time) schedule.Status {
	return schedule.StatusAt(now, a.StartAt, a.EndAt)
}

func (a Assignment) Window() schedule.Window {
	return schedule.Window{ID: a.ID, Start: a.StartAt, End: a.EndAt}
}

// NewAssignment contains information needed to create a new Assignment.
// Timestamps arrive as RFC3339 strings; offsets are mandatory.
type NewAssignment struct {
	Name    string `json:"name" validate:"required"`
	StartAt string `json:"start_at" validate:"required"`
	EndAt   string `json:"end_at" validate:"required"`

	startAt time.Time
	endAt   time.Time
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	if err := validate.Struct(na); err != nil {
		return err
	}
	var err error
	if na.startAt, na.endAt, err = parseWindow(na.StartAt, na.EndAt); err != nil {
		return err
	}
	return nil
}

// UpdateAssignment defines what information may be provided to modify an
// existing Assignment. Empty fields keep their current value.
type UpdateAssignment struct {
	Name    string `json:"name"`
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

func (ua *UpdateAssignment) Validate(orig Assignment, validate *validator.Validate) (Assignment, error) {
	if name := core.CleanString(ua.Name); name != "" {
		orig.Name = name
	}
	if err := validate.Struct(ua); err != nil {
		return Assignment{}, err
	}

	if ua.StartAt != "" {
		t, err := schedule.ParseInstant(ua.StartAt)
		if err != nil {
			return Assignment{}, invalidTimestamp("start_at")
		}
		orig.StartAt = t.UTC()
	}
	if ua.EndAt != "" {
		t, err := schedule.ParseInstant(ua.EndAt)
		if err != nil {
			return Assignment{}, invalidTimestamp("end_at")
		}
		orig.EndAt = t.UTC()
	}
	if !orig.EndAt.After(orig.StartAt) {
		return Assignment{}, endBeforeStart()
	}
	return orig, nil
}

func parseWindow(startStr, endStr string) (start, end time.Time, err error) {
	if start, err = schedule.ParseInstant(startStr); err != nil {
		return time.Time{}, time.Time{}, invalidTimestamp("start_at")
	}
	if end, err = schedule.ParseInstant(endStr); err != nil {
		return time.Time{}, time.Time{}, invalidTimestamp("end_at")
	}
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return time.Time{}, time.Time{}, endBeforeStart()
	}
	return start, end, nil
}

func invalidTimestamp(field string) error {
	return core.NewValidationError(nil, core.FieldError{
		Field: field,
		Error: "must be an RFC3339 timestamp with a UTC offset",
	})
}

func endBeforeStart() error {
	return core.NewValidationError(nil, core.FieldError{
		Field: "end_at",
		Error: "must be after start_at",
	})
}
