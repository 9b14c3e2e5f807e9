package evaluation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nkashama/tathmini/core"
)

type (
	// TeamEvaluation is a score and comment an evaluator gave to an entire
	// team under one assignment. At most one exists per
	// (assignment, evaluated team, evaluator); a resubmission replaces it.
	TeamEvaluation struct {
		ID              string    `json:"id"`
		AssignmentID    string    `json:"assignment_id"`
		EvaluatedTeamID string    `json:"evaluated_team_id"`
		EvaluatorID     string    `json:"evaluator_student_id"`
		TeamScore       int       `json:"team_score"`
		TeamComment     string    `json:"team_comment"`
		CreatedAt       time.Time `json:"created_at"` // UTC

		// enriched for review and report views
		EvaluatorName     string             `json:"evaluator_name,omitempty"`
		EvaluatorTeamName string             `json:"evaluator_team_name,omitempty"`
		EvaluatedTeamName string             `json:"evaluated_team_name,omitempty"`
		Members           []MemberEvaluation `json:"member_evaluations,omitempty"`
	}

	// MemberEvaluation is a score and comment for one individual member,
	// belonging to a parent TeamEvaluation.
	MemberEvaluation struct {
		ID                 string    `json:"id"`
		TeamEvaluationID   string    `json:"team_evaluation_id"`
		EvaluatedStudentID string    `json:"evaluated_student_id"`
		Score              int       `json:"score"`
		Comment            string    `json:"comment"`
		CreatedAt          time.Time `json:"created_at"` // UTC

		// enriched for review and report views
		EvaluatedStudentName string `json:"evaluated_student_name,omitempty"`
		EvaluatorName        string `json:"evaluator_name,omitempty"`
	}
)

// NewEvaluation is a full submission payload: one team score plus one score
// per evaluated member.
type NewEvaluation struct {
	AssignmentID    string                `json:"assignment_id" validate:"required"`
	EvaluatedTeamID string                `json:"evaluated_team_id" validate:"required"`
	TeamScore       int                   `json:"team_score" validate:"min=0,max=10"`
	TeamComment     string                `json:"team_comment"`
	Members         []NewMemberEvaluation `json:"member_evaluations" validate:"dive"`
}

type NewMemberEvaluation struct {
	StudentID string `json:"student_id" validate:"required"`
	Score     int    `json:"score" validate:"min=0,max=10"`
	Comment   string `json:"comment"`
}

func (ne *NewEvaluation) Validate(validate *validator.Validate) error {
	ne.TeamComment = core.CleanString(ne.TeamComment)
	for i := range ne.Members {
		ne.Members[i].Comment = core.CleanString(ne.Members[i].Comment)
	}
	return validate.Struct(ne)
}
