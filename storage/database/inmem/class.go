package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkashama/tathmini/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = uuid.NewString()
	repo.db.classes[cls.ID] = &cls
	repo.db.classOrder = append(repo.db.classOrder, cls.ID)
	return cls, nil
}

func (repo *classRepository) QueryClassesByTeacher(ctx context.Context, teacherID string) ([]class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var classes []class.Class
	for _, id := range repo.db.classOrder {
		if cls, ok := repo.db.classes[id]; ok && cls.TeacherID == teacherID {
			classes = append(classes, *cls)
		}
	}
	return classes, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return class.Class{}, class.ErrClassNotFound
}

func (repo *classRepository) CreateTeam(ctx context.Context, team class.Team) (class.Team, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	team.ID = uuid.NewString()
	repo.db.teams[team.ID] = &team
	repo.db.teamOrder = append(repo.db.teamOrder, team.ID)
	return team, nil
}

func (repo *classRepository) QueryTeamsByClass(ctx context.Context, classID string, withStudents bool) ([]class.Team, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var teams []class.Team
	for _, id := range repo.db.teamOrder {
		team, ok := repo.db.teams[id]
		if !ok || team.ClassID != classID {
			continue
		}
		t := *team
		if withStudents {
			t.Students = repo.studentsByTeam(id)
		}
		teams = append(teams, t)
	}
	return teams, nil
}

func (repo *classRepository) GetTeamByID(ctx context.Context, id string) (class.Team, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if team, ok := repo.db.teams[id]; ok {
		return *team, nil
	}
	return class.Team{}, class.ErrTeamNotFound
}

func (repo *classRepository) GetTeamByName(ctx context.Context, classID, name string) (class.Team, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, team := range repo.db.teams {
		if team.ClassID == classID && team.Name == name {
			return *team, nil
		}
	}
	return class.Team{}, class.ErrTeamNotFound
}

func (repo *classRepository) DeleteTeam(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.teams, id)
	for sid, std := range repo.db.students {
		if std.TeamID == id {
			delete(repo.db.students, sid)
		}
	}
	return nil
}

func (repo *classRepository) CreateStudent(ctx context.Context, std class.Student) (class.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	std.ID = uuid.NewString()
	repo.db.students[std.ID] = &std
	repo.db.studentOrder = append(repo.db.studentOrder, std.ID)
	return std, nil
}

func (repo *classRepository) QueryStudentsByClass(ctx context.Context, classID string) ([]class.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []class.Student
	for _, id := range repo.db.studentOrder {
		if std, ok := repo.db.students[id]; ok && std.ClassID == classID {
			students = append(students, *std)
		}
	}
	return students, nil
}

func (repo *classRepository) QueryStudentsByTeam(ctx context.Context, teamID string) ([]class.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.studentsByTeam(teamID), nil
}

func (repo *classRepository) QueryStudentsByName(ctx context.Context, name string) ([]class.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []class.Student
	for _, id := range repo.db.studentOrder {
		if std, ok := repo.db.students[id]; ok && std.Name == name {
			students = append(students, *std)
		}
	}
	return students, nil
}

func (repo *classRepository) GetStudentByID(ctx context.Context, id string) (class.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return class.Student{}, class.ErrStudentNotFound
}

func (repo *classRepository) GetPreAddedStudent(ctx context.Context, teamID, studentNo string) (class.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, std := range repo.db.students {
		if std.TeamID == teamID && std.StudentNo == studentNo && std.PreAdded {
			return *std, nil
		}
	}
	return class.Student{}, class.ErrStudentNotFound
}

func (repo *classRepository) UpdateStudent(ctx context.Context, std class.Student) (class.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return class.Student{}, class.ErrStudentNotFound
	}
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *classRepository) DeleteStudent(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.students, id)
	return nil
}

// studentsByTeam expects the caller to hold the lock.
func (repo *classRepository) studentsByTeam(teamID string) []class.Student {
	var students []class.Student
	for _, id := range repo.db.studentOrder {
		if std, ok := repo.db.students[id]; ok && std.TeamID == teamID {
			students = append(students, *std)
		}
	}
	return students
}
