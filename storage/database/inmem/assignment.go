package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/nkashama/tathmini/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	asg.ID = uuid.NewString()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) QueryAssignmentsByClass(ctx context.Context, classID string) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var asgs []assignment.Assignment
	for _, asg := range repo.db.assignments {
		if asg.ClassID == classID {
			asgs = append(asgs, *asg)
		}
	}
	sort.Slice(asgs, func(i, j int) bool { return asgs[i].StartAt.Before(asgs[j].StartAt) })
	return asgs, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assignments[asg.ID]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	asg.ClassID = orig.ClassID
	asg.CreatedAt = orig.CreatedAt
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.assignments, id)
	for teID, te := range repo.db.teamEvals {
		if te.AssignmentID == id {
			delete(repo.db.teamEvals, teID)
			for meID, me := range repo.db.memberEvals {
				if me.TeamEvaluationID == teID {
					delete(repo.db.memberEvals, meID)
				}
			}
		}
	}
	return nil
}
