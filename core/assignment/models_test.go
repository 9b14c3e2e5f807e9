package assignment

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/nkashama/tathmini/core"
)

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	validate := validator.New()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func TestNewAssignmentValidate(t *testing.T) {
	validate := newValidate(t)

	tests := []struct {
		name    string
		na      NewAssignment
		wantErr bool
	}{
		{
			"valid window",
			NewAssignment{Name: "Sprint 1", StartAt: "2026-03-01T10:00:00-05:00", EndAt: "2026-03-01T12:00:00-05:00"},
			false,
		},
		{
			"offsets may differ",
			NewAssignment{Name: "Sprint 1", StartAt: "2026-03-01T10:00:00-05:00", EndAt: "2026-03-01T16:00:00Z"},
			false,
		},
		{
			"naive start rejected",
			NewAssignment{Name: "Sprint 1", StartAt: "2026-03-01T10:00:00", EndAt: "2026-03-01T12:00:00-05:00"},
			true,
		},
		{
			"end before start",
			NewAssignment{Name: "Sprint 1", StartAt: "2026-03-01T12:00:00Z", EndAt: "2026-03-01T10:00:00Z"},
			true,
		},
		{
			"end equal to start",
			NewAssignment{Name: "Sprint 1", StartAt: "2026-03-01T12:00:00Z", EndAt: "2026-03-01T12:00:00Z"},
			true,
		},
		{
			"missing name",
			NewAssignment{StartAt: "2026-03-01T10:00:00Z", EndAt: "2026-03-01T12:00:00Z"},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.na.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewAssignmentValidate_normalizesToUTC(t *testing.T) {
	validate := newValidate(t)

	na := NewAssignment{Name: "Sprint 1", StartAt: "2026-03-01T10:00:00-05:00", EndAt: "2026-03-01T12:00:00-05:00"}
	if err := na.Validate(validate); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	wantStart := time.Date(2026, time.March, 1, 15, 0, 0, 0, time.UTC)
	if !na.startAt.Equal(wantStart) || na.startAt.Location() != time.UTC {
		t.Errorf("startAt = %v, want %v", na.startAt, wantStart)
	}
}

func TestUpdateAssignmentValidate(t *testing.T) {
	validate := newValidate(t)

	orig := Assignment{
		ID:      "a1",
		Name:    "Sprint 1",
		StartAt: time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}

	t.Run("empty fields keep current values", func(t *testing.T) {
		ua := UpdateAssignment{}
		got, err := ua.Validate(orig, validate)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if got.Name != orig.Name || !got.StartAt.Equal(orig.StartAt) || !got.EndAt.Equal(orig.EndAt) {
			t.Errorf("got %+v, want unchanged %+v", got, orig)
		}
	})

	t.Run("moving end before kept start rejected", func(t *testing.T) {
		ua := UpdateAssignment{EndAt: "2026-03-01T09:00:00Z"}
		if _, err := ua.Validate(orig, validate); err == nil {
			t.Error("Validate() expected error")
		}
	})

	t.Run("new window accepted", func(t *testing.T) {
		ua := UpdateAssignment{Name: "Sprint 2", StartAt: "2026-04-01T10:00:00Z", EndAt: "2026-04-01T12:00:00Z"}
		got, err := ua.Validate(orig, validate)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if got.Name != "Sprint 2" {
			t.Errorf("Name = %q, want %q", got.Name, "Sprint 2")
		}
	})
}
