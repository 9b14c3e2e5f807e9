package class

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/nkashama/tathmini/core"
)

var (
	// errors
	ErrClassNotFound   = errors.New("class not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrTeamExists      = errors.New("a team with this name already exists in this class")
	ErrStudentNotFound = errors.New("student not found")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherID string) ([]Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)

		CreateTeam(ctx context.Context, team Team) (Team, error)
		// QueryTeamsByClass returns teams in input/creation order; withStudents
		// attaches each team's member list.
		QueryTeamsByClass(ctx context.Context, classID string, withStudents bool) ([]Team, error)
		GetTeamByID(ctx context.Context, id string) (Team, error)
		GetTeamByName(ctx context.Context, classID, name string) (Team, error)
		// DeleteTeam removes the team and all its students.
		DeleteTeam(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, std Student) (Student, error)
		QueryStudentsByClass(ctx context.Context, classID string) ([]Student, error)
		QueryStudentsByTeam(ctx context.Context, teamID string) ([]Student, error)
		// QueryStudentsByName matches the exact display name across all classes.
		QueryStudentsByName(ctx context.Context, name string) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetPreAddedStudent(ctx context.Context, teamID, studentNo string) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
		conf *core.Config
	}

	AccessLink struct {
		Link      string    `json:"link"`
		ExpiresAt time.Time `json:"expires_at"`
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

// CreateClass creates a class for a teacher along with its default "Guests" team.
func (svc *Service) CreateClass(ctx context.Context, teacherID string, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls, err := svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		TeacherID: teacherID,
		CreatedAt: now,
	})
	if err != nil {
		return Class{}, err
	}
	if _, err = svc.repo.CreateTeam(ctx, Team{
		ClassID:   cls.ID,
		Name:      GuestsTeamName,
		CreatedAt: now,
	}); err != nil {
		return Class{}, err
	}
	return cls, nil
}

func (svc *Service) QueryClasses(ctx context.Context, teacherID string) ([]Class, error) {
	return svc.repo.QueryClassesByTeacher(ctx, teacherID)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

// CreateTeam creates a team; names are unique within a class.
func (svc *Service) CreateTeam(ctx context.Context, classID string, nt NewTeam) (Team, error) {
	if _, err := svc.repo.GetTeamByName(ctx, classID, nt.Name); err == nil {
		return Team{}, core.NewValidationError(ErrTeamExists, core.FieldError{Field: "team_name", Error: ErrTeamExists.Error()})
	} else if err != ErrTeamNotFound {
		return Team{}, err
	}
	return svc.repo.CreateTeam(ctx, Team{
		ClassID:   classID,
		Name:      nt.Name,
		CreatedAt: time.Now().UTC(),
	})
}

// QueryTeams lists a class's teams for the teacher view; the reserved
// "Teachers" team is never listed.
func (svc *Service) QueryTeams(ctx context.Context, classID string) ([]Team, error) {
	teams, err := svc.repo.QueryTeamsByClass(ctx, classID, false)
	if err != nil {
		return nil, err
	}
	visible := make([]Team, 0, len(teams))
	for _, t := range teams {
		if t.IsTeachers() {
			continue
		}
		visible = append(visible, t)
	}
	return visible, nil
}

// EvaluableTeamsFor lists the teams a member may evaluate, with rosters.
func (svc *Service) EvaluableTeamsFor(ctx context.Context, classID, myTeamID string) ([]Team, error) {
	teams, err := svc.repo.QueryTeamsByClass(ctx, classID, true)
	if err != nil {
		return nil, err
	}
	visible := make([]Team, 0, len(teams))
	for _, t := range teams {
		if t.IsTeachers() {
			continue
		}
		visible = append(visible, t)
	}
	return EvaluableTeams(visible, myTeamID), nil
}

func (svc *Service) GetTeam(ctx context.Context, id string) (Team, error) {
	return svc.repo.GetTeamByID(ctx, id)
}

func (svc *Service) TeamMembers(ctx context.Context, classID, teamID string) ([]Student, error) {
	team, err := svc.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.ClassID != classID {
		return nil, ErrTeamNotFound
	}
	return svc.repo.QueryStudentsByTeam(ctx, teamID)
}

func (svc *Service) ClassStudents(ctx context.Context, classID string) ([]Student, error) {
	return svc.repo.QueryStudentsByClass(ctx, classID)
}

// AddStudents bulk-creates students from a teacher's roster paste.
// Regular students get their student number as passcode and are marked
// pre-added; guests get the class name as passcode. Duplicate display names
// within the team are suffixed.
func (svc *Service) AddStudents(ctx context.Context, teamID string, input RosterInput) ([]RosterEntry, error) {
	team, err := svc.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	cls, err := svc.repo.GetClassByID(ctx, team.ClassID)
	if err != nil {
		return nil, err
	}

	existing, err := svc.repo.QueryStudentsByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(existing))
	for _, s := range existing {
		names[s.Name] = true
	}
	taken := func(name string) bool { return names[name] }

	now := time.Now().UTC()
	var added []RosterEntry
	for _, entry := range ParseRoster(input.Text, team.IsGuests()) {
		name := UniqueName(entry.Name, taken)
		names[name] = true

		std := Student{
			Name:      name,
			StudentNo: entry.StudentNo,
			TeamID:    teamID,
			ClassID:   team.ClassID,
			PreAdded:  !team.IsGuests(),
			CreatedAt: now,
		}
		passcode := entry.StudentNo
		if team.IsGuests() {
			passcode = cls.Name
		}
		if err = std.SetPasscode(passcode); err != nil {
			return nil, err
		}
		if _, err = svc.repo.CreateStudent(ctx, std); err != nil {
			return nil, err
		}
		added = append(added, RosterEntry{Name: name, StudentNo: entry.StudentNo})
	}
	return added, nil
}

func (svc *Service) DeleteTeam(ctx context.Context, classID, teamID string) error {
	team, err := svc.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.ClassID != classID {
		return ErrTeamNotFound
	}
	return svc.repo.DeleteTeam(ctx, teamID)
}

func (svc *Service) DeleteStudent(ctx context.Context, classID, studentID string) error {
	std, err := svc.repo.GetStudentByID(ctx, studentID)
	if err != nil {
		return err
	}
	if std.ClassID != classID {
		return ErrStudentNotFound
	}
	return svc.repo.DeleteStudent(ctx, studentID)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) FindStudentsByName(ctx context.Context, name string) ([]Student, error) {
	return svc.repo.QueryStudentsByName(ctx, core.CleanString(name))
}

// LockToDevice assigns a fresh device token to a student account so further
// logins are restricted to the original device.
func (svc *Service) LockToDevice(ctx context.Context, std Student) (Student, error) {
	std.DeviceToken = randomToken()
	return svc.repo.UpdateStudent(ctx, std)
}

// IssueAccessLink signs a class-join link valid for the configured delta.
func (svc *Service) IssueAccessLink(ctx context.Context, classID string) (AccessLink, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return AccessLink{}, err
	}
	expiresAt := time.Now().UTC().Add(svc.conf.Server.AccessLinkDelta)
	token := MakeAccessToken(classID, expiresAt)
	return AccessLink{
		Link:      svc.conf.FrontendBaseURL + "/join/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// CheckAccessToken validates a join token and returns the class it opens.
func (svc *Service) CheckAccessToken(ctx context.Context, token string) (Class, error) {
	classID, _, err := VerifyAccessToken(token)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.GetClassByID(ctx, classID)
}

// Join admits a student or guest into a class through an access link.
// Pre-added students are claimed by student number; everyone else gets a
// fresh account. The returned Student carries a newly issued device token.
func (svc *Service) Join(ctx context.Context, token string, jr JoinRequest) (Student, error) {
	classID, expiresAt, err := VerifyAccessToken(token)
	if err != nil {
		return Student{}, err
	}
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return Student{}, err
	}

	deviceToken := randomToken()
	now := time.Now().UTC()

	if jr.IsGuest {
		guests, err := svc.ensureTeam(ctx, classID, GuestsTeamName)
		if err != nil {
			return Student{}, err
		}
		name, err := svc.uniqueTeamName(ctx, guests.ID, jr.StudentName)
		if err != nil {
			return Student{}, err
		}
		std := Student{
			Name:            name,
			StudentNo:       "",
			TeamID:          guests.ID,
			ClassID:         classID,
			AccessExpiresAt: expiresAt,
			DeviceToken:     deviceToken,
			CreatedAt:       now,
		}
		if err = std.SetPasscode(cls.Name); err != nil {
			return Student{}, err
		}
		return svc.repo.CreateStudent(ctx, std)
	}

	team, err := svc.repo.GetTeamByID(ctx, jr.TeamID)
	if err != nil {
		return Student{}, err
	}
	if team.ClassID != classID {
		return Student{}, ErrTeamNotFound
	}

	// claim a pre-added account if the teacher listed this student number
	if std, err := svc.repo.GetPreAddedStudent(ctx, jr.TeamID, jr.StudentNo); err == nil {
		name, err := svc.uniqueTeamName(ctx, jr.TeamID, jr.StudentName)
		if err != nil {
			return Student{}, err
		}
		std.Name = name
		std.AccessExpiresAt = expiresAt
		std.DeviceToken = deviceToken
		return svc.repo.UpdateStudent(ctx, std)
	} else if err != ErrStudentNotFound {
		return Student{}, err
	}

	name, err := svc.uniqueTeamName(ctx, jr.TeamID, jr.StudentName)
	if err != nil {
		return Student{}, err
	}
	std := Student{
		Name:            name,
		StudentNo:       jr.StudentNo,
		TeamID:          jr.TeamID,
		ClassID:         classID,
		AccessExpiresAt: expiresAt,
		DeviceToken:     deviceToken,
		CreatedAt:       now,
	}
	if err = std.SetPasscode(jr.StudentNo); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, std)
}

// GetOrCreateTeacherRecord provisions the student record a teacher evaluates
// through, inside the reserved "Teachers" team of the class.
func (svc *Service) GetOrCreateTeacherRecord(ctx context.Context, classID, teacherName string) (Student, error) {
	team, err := svc.ensureTeam(ctx, classID, TeachersTeamName)
	if err != nil {
		return Student{}, err
	}
	members, err := svc.repo.QueryStudentsByTeam(ctx, team.ID)
	if err != nil {
		return Student{}, err
	}
	for _, m := range members {
		if m.Name == teacherName {
			return m, nil
		}
	}
	std := Student{
		Name:      teacherName,
		StudentNo: TeacherStudentNo,
		TeamID:    team.ID,
		ClassID:   classID,
		CreatedAt: time.Now().UTC(),
	}
	if err = std.SetPasscode(TeacherStudentNo); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) ensureTeam(ctx context.Context, classID, name string) (Team, error) {
	team, err := svc.repo.GetTeamByName(ctx, classID, name)
	if err == nil {
		return team, nil
	}
	if err != ErrTeamNotFound {
		return Team{}, err
	}
	return svc.repo.CreateTeam(ctx, Team{
		ClassID:   classID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) uniqueTeamName(ctx context.Context, teamID, name string) (string, error) {
	members, err := svc.repo.QueryStudentsByTeam(ctx, teamID)
	if err != nil {
		return "", err
	}
	names := make(map[string]bool, len(members))
	for _, m := range members {
		names[m.Name] = true
	}
	return UniqueName(core.CleanString(name), func(n string) bool { return names[n] }), nil
}

func randomToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
