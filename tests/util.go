package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/user"
)

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo class.Repository, name, teacherID string) class.Class {
	t.Helper()

	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:      name,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateTeam(t *testing.T, repo class.Repository, classID, name string) class.Team {
	t.Helper()

	team, err := repo.CreateTeam(context.Background(), class.Team{
		ClassID:   classID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	return team
}

func CreateStudent(t *testing.T, repo class.Repository, name, studentNo, passcode string, team class.Team) class.Student {
	t.Helper()

	std := class.Student{
		Name:      name,
		StudentNo: studentNo,
		TeamID:    team.ID,
		ClassID:   team.ClassID,
		PreAdded:  studentNo != "" && studentNo != class.GuestStudentNo,
		CreatedAt: time.Now().UTC(),
	}
	if err := std.SetPasscode(passcode); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	std, err := repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateAssignment(t *testing.T, repo assignment.Repository, classID, name string, startAt, endAt time.Time) assignment.Assignment {
	t.Helper()

	asg, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		ClassID:   classID,
		Name:      name,
		StartAt:   startAt.UTC(),
		EndAt:     endAt.UTC(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}
