package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/schedule"
)

var (
	// errors
	ErrNotFound    = errors.New("evaluation not found")
	ErrNotActive   = errors.New("the assignment is not open for evaluations")
	ErrGuestsTeam  = errors.New("cannot evaluate the Guests group")
	ErrOwnTeam     = errors.New("you cannot evaluate your own team")
	ErrWrongClass  = errors.New("evaluated team does not belong to the assignment's class")
	ErrUnknownUser = errors.New("evaluator is not a member of this class")
)

type (
	Repository interface {
		// ReplaceTeamEvaluation atomically deletes any previous evaluation by
		// the same evaluator for the same (assignment, team) and inserts the
		// new one with its member evaluations.
		ReplaceTeamEvaluation(ctx context.Context, te TeamEvaluation) (TeamEvaluation, error)
		TeamEvaluationExists(ctx context.Context, assignmentID, teamID, evaluatorID string) (bool, error)
		// QueryTeamEvaluationsByAssignment returns evaluations enriched with
		// evaluator, evaluator-team and evaluated-team names plus member rows.
		QueryTeamEvaluationsByAssignment(ctx context.Context, assignmentID string) ([]TeamEvaluation, error)
		// QueryTeamEvaluationsForTeam returns enriched evaluations received by
		// one team under one assignment.
		QueryTeamEvaluationsForTeam(ctx context.Context, assignmentID, teamID string) ([]TeamEvaluation, error)
		// QueryMemberEvaluationsForStudent returns enriched member evaluations
		// received by one student under one assignment.
		QueryMemberEvaluationsForStudent(ctx context.Context, assignmentID, studentID string) ([]MemberEvaluation, error)
		// QueryEvaluatedAssignmentIDs lists the assignments an evaluator has
		// already submitted under.
		QueryEvaluatedAssignmentIDs(ctx context.Context, evaluatorID string) ([]string, error)
	}

	Service struct {
		repo     Repository
		asgSvc   *assignment.Service
		classSvc *class.Service
	}

	// Evaluator identifies who is submitting. Teachers have no student
	// record up front; one is provisioned in the reserved "Teachers" team.
	Evaluator struct {
		StudentID string
		TeamID    string
		Name      string
		IsTeacher bool
	}

	// Report joins a student, their assignment and every evaluation they
	// received. Computed per request, never persisted.
	Report struct {
		Student           class.Student         `json:"student"`
		TeamName          string                `json:"team_name"`
		ClassName         string                `json:"class_name"`
		Assignment        assignment.Assignment `json:"assignment"`
		TeamEvaluations   []TeamEvaluation      `json:"team_evaluations"`
		MemberEvaluations []MemberEvaluation    `json:"member_evaluations"`
		Summary           Summary               `json:"summary"`
	}
)

func NewService(repo Repository, asgSvc *assignment.Service, classSvc *class.Service) *Service {
	return &Service{repo: repo, asgSvc: asgSvc, classSvc: classSvc}
}

// Submit stores an evaluation, replacing any previous submission by the same
// evaluator for the same target. The assignment must be active at `now`;
// the Guests team and the evaluator's own team are never valid targets.
func (svc *Service) Submit(ctx context.Context, ev Evaluator, ne NewEvaluation) (TeamEvaluation, error) {
	asg, err := svc.asgSvc.Get(ctx, ne.AssignmentID)
	if err != nil {
		return TeamEvaluation{}, err
	}
	now := time.Now().UTC()
	if asg.StatusAt(now) != schedule.StatusActive {
		return TeamEvaluation{}, ErrNotActive
	}

	team, err := svc.classSvc.GetTeam(ctx, ne.EvaluatedTeamID)
	if err != nil {
		return TeamEvaluation{}, err
	}
	if team.IsGuests() {
		return TeamEvaluation{}, ErrGuestsTeam
	}
	if team.ClassID != asg.ClassID {
		return TeamEvaluation{}, ErrWrongClass
	}

	evaluatorID := ev.StudentID
	if ev.IsTeacher {
		rec, err := svc.classSvc.GetOrCreateTeacherRecord(ctx, asg.ClassID, ev.Name)
		if err != nil {
			return TeamEvaluation{}, err
		}
		evaluatorID = rec.ID
	} else {
		if evaluatorID == "" {
			return TeamEvaluation{}, ErrUnknownUser
		}
		std, err := svc.classSvc.GetStudent(ctx, evaluatorID)
		if err == class.ErrStudentNotFound {
			return TeamEvaluation{}, ErrUnknownUser
		} else if err != nil {
			return TeamEvaluation{}, err
		}
		if std.ClassID != asg.ClassID {
			return TeamEvaluation{}, ErrUnknownUser
		}
		if ev.TeamID == ne.EvaluatedTeamID {
			return TeamEvaluation{}, ErrOwnTeam
		}
	}

	te := TeamEvaluation{
		AssignmentID:    ne.AssignmentID,
		EvaluatedTeamID: ne.EvaluatedTeamID,
		EvaluatorID:     evaluatorID,
		TeamScore:       ne.TeamScore,
		TeamComment:     ne.TeamComment,
		CreatedAt:       now,
	}
	for _, m := range ne.Members {
		te.Members = append(te.Members, MemberEvaluation{
			EvaluatedStudentID: m.StudentID,
			Score:              m.Score,
			Comment:            m.Comment,
			CreatedAt:          now,
		})
	}
	return svc.repo.ReplaceTeamEvaluation(ctx, te)
}

// Exists reports whether the evaluator already submitted for this target,
// so the caller can warn before a replacing resubmission.
func (svc *Service) Exists(ctx context.Context, assignmentID, teamID, evaluatorID string) (bool, error) {
	return svc.repo.TeamEvaluationExists(ctx, assignmentID, teamID, evaluatorID)
}

// Review returns all of an assignment's evaluations grouped for the
// teacher's review screen.
func (svc *Service) Review(ctx context.Context, assignmentID string) ([]ReviewGroup, error) {
	evals, err := svc.repo.QueryTeamEvaluationsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return GroupForReview(evals), nil
}

// BuildReport assembles the printable report for one student under one
// assignment, including the aggregate figures shown on screen.
func (svc *Service) BuildReport(ctx context.Context, studentID, assignmentID string) (Report, error) {
	std, err := svc.classSvc.GetStudent(ctx, studentID)
	if err != nil {
		return Report{}, err
	}
	asg, err := svc.asgSvc.Get(ctx, assignmentID)
	if err != nil {
		return Report{}, err
	}
	team, err := svc.classSvc.GetTeam(ctx, std.TeamID)
	if err != nil {
		return Report{}, err
	}
	cls, err := svc.classSvc.GetClass(ctx, std.ClassID)
	if err != nil {
		return Report{}, err
	}

	teamEvals, err := svc.repo.QueryTeamEvaluationsForTeam(ctx, assignmentID, std.TeamID)
	if err != nil {
		return Report{}, err
	}
	memberEvals, err := svc.repo.QueryMemberEvaluationsForStudent(ctx, assignmentID, studentID)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Student:           std,
		TeamName:          team.Name,
		ClassName:         cls.Name,
		Assignment:        asg,
		TeamEvaluations:   teamEvals,
		MemberEvaluations: memberEvals,
		Summary:           Aggregate(teamEvals, memberEvals),
	}, nil
}

// SubmittedSet returns the assignment IDs the evaluator already submitted
// under, for flagging the student dashboard.
func (svc *Service) SubmittedSet(ctx context.Context, evaluatorID string) (map[string]bool, error) {
	if evaluatorID == "" {
		return map[string]bool{}, nil
	}
	ids, err := svc.repo.QueryEvaluatedAssignmentIDs(ctx, evaluatorID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
