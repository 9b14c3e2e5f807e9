package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/class"
)

type classRepository struct {
	exec core.DBExecutor
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

// insertion-order listing, shared with the teacher-account queries in user.go
var creationOrdering = core.DBOrdering{Field: "created_at", Ascending: true}

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{exec: db}
}

type studentRow struct {
	ID              string       `db:"id"`
	Name            string       `db:"name"`
	StudentNo       string       `db:"student_no"`
	PasscodeHash    []byte       `db:"passcode_hash"`
	TeamID          string       `db:"team_id"`
	ClassID         string       `db:"class_id"`
	PreAdded        bool         `db:"pre_added"`
	AccessExpiresAt sql.NullTime `db:"access_expires_at"`
	DeviceToken     string       `db:"device_token"`
	CreatedAt       time.Time    `db:"created_at"`
}

func (r studentRow) toStudent() class.Student {
	std := class.Student{
		ID:           r.ID,
		Name:         r.Name,
		StudentNo:    r.StudentNo,
		PasscodeHash: r.PasscodeHash,
		TeamID:       r.TeamID,
		ClassID:      r.ClassID,
		PreAdded:     r.PreAdded,
		DeviceToken:  r.DeviceToken,
		CreatedAt:    r.CreatedAt,
	}
	if r.AccessExpiresAt.Valid {
		std.AccessExpiresAt = r.AccessExpiresAt.Time
	}
	return std
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

const selectStudent = `
SELECT id, name, student_no, passcode_hash, team_id, class_id, pre_added, access_expires_at, device_token, created_at
FROM students`

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.NewString()
	query := `INSERT INTO classes (id, name, teacher_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.exec.ExecContext(ctx, query, cls.ID, cls.Name, cls.TeacherID, cls.CreatedAt); err != nil {
		return class.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *classRepository) QueryClassesByTeacher(ctx context.Context, teacherID string) ([]class.Class, error) {
	var classes []class.Class
	query := `SELECT id, name, teacher_id, created_at FROM classes WHERE teacher_id = $1 ORDER BY ` + creationOrdering.String()
	rows, err := repo.exec.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cls class.Class
		if err = rows.Scan(&cls.ID, &cls.Name, &cls.TeacherID, &cls.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning class")
		}
		classes = append(classes, cls)
	}
	return classes, rows.Err()
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	var cls class.Class
	query := `SELECT id, name, teacher_id, created_at FROM classes WHERE id = $1`
	if err := repo.exec.QueryRowContext(ctx, query, id).Scan(&cls.ID, &cls.Name, &cls.TeacherID, &cls.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrClassNotFound
		}
		return class.Class{}, errors.Wrap(err, "getting class")
	}
	return cls, nil
}

func (repo *classRepository) CreateTeam(ctx context.Context, team class.Team) (class.Team, error) {
	team.ID = uuid.NewString()
	query := `INSERT INTO teams (id, class_id, name, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.exec.ExecContext(ctx, query, team.ID, team.ClassID, team.Name, team.CreatedAt); err != nil {
		return class.Team{}, errors.Wrap(err, "creating team")
	}
	return team, nil
}

func (repo *classRepository) QueryTeamsByClass(ctx context.Context, classID string, withStudents bool) ([]class.Team, error) {
	var teams []class.Team
	query := `SELECT id, class_id, name, created_at FROM teams WHERE class_id = $1 ORDER BY ` + creationOrdering.String()
	rows, err := repo.exec.QueryContext(ctx, query, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var team class.Team
		if err = rows.Scan(&team.ID, &team.ClassID, &team.Name, &team.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning team")
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if withStudents {
		for i := range teams {
			students, err := repo.QueryStudentsByTeam(ctx, teams[i].ID)
			if err != nil {
				return nil, err
			}
			teams[i].Students = students
		}
	}
	return teams, nil
}

func (repo *classRepository) GetTeamByID(ctx context.Context, id string) (class.Team, error) {
	var team class.Team
	query := `SELECT id, class_id, name, created_at FROM teams WHERE id = $1`
	if err := repo.exec.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.ClassID, &team.Name, &team.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return class.Team{}, class.ErrTeamNotFound
		}
		return class.Team{}, errors.Wrap(err, "getting team")
	}
	return team, nil
}

func (repo *classRepository) GetTeamByName(ctx context.Context, classID, name string) (class.Team, error) {
	var team class.Team
	query := `SELECT id, class_id, name, created_at FROM teams WHERE class_id = $1 AND name = $2`
	if err := repo.exec.QueryRowContext(ctx, query, classID, name).Scan(&team.ID, &team.ClassID, &team.Name, &team.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return class.Team{}, class.ErrTeamNotFound
		}
		return class.Team{}, errors.Wrap(err, "getting team by name")
	}
	return team, nil
}

func (repo *classRepository) DeleteTeam(ctx context.Context, id string) error {
	// students cascade at the schema level
	if _, err := repo.exec.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting team")
	}
	return nil
}

func (repo *classRepository) CreateStudent(ctx context.Context, std class.Student) (class.Student, error) {
	std.ID = uuid.NewString()
	query := `
INSERT INTO students (id, name, student_no, passcode_hash, team_id, class_id, pre_added, access_expires_at, device_token, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := repo.exec.ExecContext(ctx, query,
		std.ID, std.Name, std.StudentNo, std.PasscodeHash, std.TeamID, std.ClassID,
		std.PreAdded, nullTime(std.AccessExpiresAt), std.DeviceToken, std.CreatedAt,
	); err != nil {
		return class.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo *classRepository) QueryStudentsByClass(ctx context.Context, classID string) ([]class.Student, error) {
	var rows []studentRow
	query := selectStudent + ` WHERE class_id = $1 ORDER BY ` + creationOrdering.String()
	if err := repo.exec.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	return toStudents(rows), nil
}

func (repo *classRepository) QueryStudentsByTeam(ctx context.Context, teamID string) ([]class.Student, error) {
	var rows []studentRow
	query := selectStudent + ` WHERE team_id = $1 ORDER BY ` + creationOrdering.String()
	if err := repo.exec.SelectContext(ctx, &rows, query, teamID); err != nil {
		return nil, errors.Wrap(err, "querying team students")
	}
	return toStudents(rows), nil
}

func (repo *classRepository) QueryStudentsByName(ctx context.Context, name string) ([]class.Student, error) {
	var rows []studentRow
	query := selectStudent + ` WHERE name = $1 ORDER BY ` + creationOrdering.String()
	if err := repo.exec.SelectContext(ctx, &rows, query, name); err != nil {
		return nil, errors.Wrap(err, "querying students by name")
	}
	return toStudents(rows), nil
}

func (repo *classRepository) GetStudentByID(ctx context.Context, id string) (class.Student, error) {
	var row studentRow
	if err := repo.exec.GetContext(ctx, &row, selectStudent+` WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return class.Student{}, class.ErrStudentNotFound
		}
		return class.Student{}, errors.Wrap(err, "getting student")
	}
	return row.toStudent(), nil
}

func (repo *classRepository) GetPreAddedStudent(ctx context.Context, teamID, studentNo string) (class.Student, error) {
	var row studentRow
	query := selectStudent + ` WHERE team_id = $1 AND student_no = $2 AND pre_added`
	if err := repo.exec.GetContext(ctx, &row, query, teamID, studentNo); err != nil {
		if err == sql.ErrNoRows {
			return class.Student{}, class.ErrStudentNotFound
		}
		return class.Student{}, errors.Wrap(err, "getting pre-added student")
	}
	return row.toStudent(), nil
}

func (repo *classRepository) UpdateStudent(ctx context.Context, std class.Student) (class.Student, error) {
	query := `
UPDATE students SET name = $2, student_no = $3, passcode_hash = $4, team_id = $5,
	pre_added = $6, access_expires_at = $7, device_token = $8
WHERE id = $1`
	res, err := repo.exec.ExecContext(ctx, query,
		std.ID, std.Name, std.StudentNo, std.PasscodeHash, std.TeamID,
		std.PreAdded, nullTime(std.AccessExpiresAt), std.DeviceToken,
	)
	if err != nil {
		return class.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return class.Student{}, class.ErrStudentNotFound
	}
	return std, nil
}

func (repo *classRepository) DeleteStudent(ctx context.Context, id string) error {
	if _, err := repo.exec.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return nil
}

func toStudents(rows []studentRow) []class.Student {
	students := make([]class.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students
}
