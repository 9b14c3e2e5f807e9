package class

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkashama/tathmini/core"
)

// Reserved team names.
const (
	// GuestsTeamName is the non-evaluable pool; its members may still evaluate others.
	GuestsTeamName = "Guests"
	// TeachersTeamName holds teacher evaluator records; hidden from all team listings.
	TeachersTeamName = "Teachers"
)

// Student number sentinels for non-regular members.
const (
	GuestStudentNo   = "non-student"
	TeacherStudentNo = "teacher"
)

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Team struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	Name      string    `json:"name"`
	Students  []Student `json:"students,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (t Team) IsGuests() bool   { return t.Name == GuestsTeamName }
func (t Team) IsTeachers() bool { return t.Name == TeachersTeamName }

type Student struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StudentNo       string    `json:"student_id"` // "" or "non-student" for guests, "teacher" for teacher records
	PasscodeHash    []byte    `json:"-"`
	TeamID          string    `json:"team_id"`
	ClassID         string    `json:"class_id"`
	PreAdded        bool      `json:"is_pre_added"`
	AccessExpiresAt time.Time `json:"-"` // zero == no expiry
	DeviceToken     string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

func (s *Student) SetPasscode(passcode string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasscodeHash = hash
	return nil
}

func (s *Student) CheckPasscode(passcode string) error {
	return bcrypt.CompareHashAndPassword(s.PasscodeHash, []byte(passcode))
}

func (s Student) IsGuest() bool {
	return s.StudentNo == GuestStudentNo || s.StudentNo == ""
}

func (s Student) IsTeacherRecord() bool { return s.StudentNo == TeacherStudentNo }

func (s Student) AccessExpired(now time.Time) bool {
	return !s.AccessExpiresAt.IsZero() && now.After(s.AccessExpiresAt)
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name string `json:"class_name" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// NewTeam contains information needed to create a new Team.
type NewTeam struct {
	Name string `json:"team_name" validate:"required"`
}

func (nt *NewTeam) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

// RosterInput is the multi-line text a teacher pastes to bulk-add students.
type RosterInput struct {
	Text string `json:"text" validate:"required"`
}

func (ri *RosterInput) Validate(validate *validator.Validate) error {
	ri.Text = core.CleanString(ri.Text)
	return validate.Struct(ri)
}

// JoinRequest is a student or guest joining a class through an access link.
type JoinRequest struct {
	StudentName string `json:"student_name" validate:"required"`
	StudentNo   string `json:"student_id" validate:"omitempty,alphanum_"`
	TeamID      string `json:"team_id"`
	IsGuest     bool   `json:"is_guest"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.StudentName = core.CleanString(jr.StudentName)
	jr.StudentNo = core.CleanString(jr.StudentNo)
	if !jr.IsGuest && jr.TeamID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "team_id", Error: "this field is required"})
	}
	return validate.Struct(jr)
}
