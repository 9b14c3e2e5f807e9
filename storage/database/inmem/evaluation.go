package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkashama/tathmini/core/evaluation"
)

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func (repo *evaluationRepository) ReplaceTeamEvaluation(ctx context.Context, te evaluation.TeamEvaluation) (evaluation.TeamEvaluation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// drop any previous submission for the same target
	for teID, prev := range repo.db.teamEvals {
		if prev.AssignmentID == te.AssignmentID &&
			prev.EvaluatedTeamID == te.EvaluatedTeamID &&
			prev.EvaluatorID == te.EvaluatorID {
			delete(repo.db.teamEvals, teID)
			for i, id := range repo.db.evalOrder {
				if id == teID {
					repo.db.evalOrder = append(repo.db.evalOrder[:i], repo.db.evalOrder[i+1:]...)
					break
				}
			}
			for meID, me := range repo.db.memberEvals {
				if me.TeamEvaluationID == teID {
					delete(repo.db.memberEvals, meID)
				}
			}
		}
	}

	te.ID = uuid.NewString()
	for i := range te.Members {
		te.Members[i].ID = uuid.NewString()
		te.Members[i].TeamEvaluationID = te.ID
		m := te.Members[i]
		repo.db.memberEvals[m.ID] = &m
	}
	stored := te
	stored.Members = nil
	repo.db.teamEvals[te.ID] = &stored
	repo.db.evalOrder = append(repo.db.evalOrder, te.ID)
	return te, nil
}

func (repo *evaluationRepository) TeamEvaluationExists(ctx context.Context, assignmentID, teamID, evaluatorID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, te := range repo.db.teamEvals {
		if te.AssignmentID == assignmentID && te.EvaluatedTeamID == teamID && te.EvaluatorID == evaluatorID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *evaluationRepository) QueryTeamEvaluationsByAssignment(ctx context.Context, assignmentID string) ([]evaluation.TeamEvaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var evals []evaluation.TeamEvaluation
	for _, id := range repo.db.evalOrder {
		if te, ok := repo.db.teamEvals[id]; ok && te.AssignmentID == assignmentID {
			evals = append(evals, repo.enrich(*te))
		}
	}
	return evals, nil
}

func (repo *evaluationRepository) QueryTeamEvaluationsForTeam(ctx context.Context, assignmentID, teamID string) ([]evaluation.TeamEvaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var evals []evaluation.TeamEvaluation
	for _, id := range repo.db.evalOrder {
		if te, ok := repo.db.teamEvals[id]; ok && te.AssignmentID == assignmentID && te.EvaluatedTeamID == teamID {
			evals = append(evals, repo.enrich(*te))
		}
	}
	return evals, nil
}

func (repo *evaluationRepository) QueryMemberEvaluationsForStudent(ctx context.Context, assignmentID, studentID string) ([]evaluation.MemberEvaluation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var evals []evaluation.MemberEvaluation
	for _, me := range repo.db.memberEvals {
		if me.EvaluatedStudentID != studentID {
			continue
		}
		te, ok := repo.db.teamEvals[me.TeamEvaluationID]
		if !ok || te.AssignmentID != assignmentID {
			continue
		}
		m := *me
		if std, ok := repo.db.students[m.EvaluatedStudentID]; ok {
			m.EvaluatedStudentName = std.Name
		}
		if ev, ok := repo.db.students[te.EvaluatorID]; ok {
			m.EvaluatorName = ev.Name
		}
		evals = append(evals, m)
	}
	return evals, nil
}

func (repo *evaluationRepository) QueryEvaluatedAssignmentIDs(ctx context.Context, evaluatorID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, te := range repo.db.teamEvals {
		if te.EvaluatorID == evaluatorID && !seen[te.AssignmentID] {
			seen[te.AssignmentID] = true
			ids = append(ids, te.AssignmentID)
		}
	}
	return ids, nil
}

// enrich expects the caller to hold the lock.
func (repo *evaluationRepository) enrich(te evaluation.TeamEvaluation) evaluation.TeamEvaluation {
	if ev, ok := repo.db.students[te.EvaluatorID]; ok {
		te.EvaluatorName = ev.Name
		if team, ok := repo.db.teams[ev.TeamID]; ok {
			te.EvaluatorTeamName = team.Name
		}
	}
	if team, ok := repo.db.teams[te.EvaluatedTeamID]; ok {
		te.EvaluatedTeamName = team.Name
	}
	for _, me := range repo.db.memberEvals {
		if me.TeamEvaluationID == te.ID {
			m := *me
			if std, ok := repo.db.students[m.EvaluatedStudentID]; ok {
				m.EvaluatedStudentName = std.Name
			}
			te.Members = append(te.Members, m)
		}
	}
	return te
}
