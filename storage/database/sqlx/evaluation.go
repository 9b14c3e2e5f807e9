package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/evaluation"
)

type evaluationRepository struct {
	db *sqlx.DB
}

// interface compliance checks
var (
	_ evaluation.Repository = (*evaluationRepository)(nil)
	_ core.DBExecutor       = (*sqlx.DB)(nil)
	_ core.DBTransactor     = (*sqlx.Tx)(nil)
)

// orderings for the queries below
var (
	teamEvalOrdering   = core.DBOrdering{Field: "te.created_at", Ascending: true}
	memberEvalOrdering = core.DBOrdering{Field: "me.created_at", Ascending: true}
)

func NewEvaluationRepository(db *sqlx.DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

type teamEvalRow struct {
	ID                string    `db:"id"`
	AssignmentID      string    `db:"assignment_id"`
	EvaluatedTeamID   string    `db:"evaluated_team_id"`
	EvaluatorID       string    `db:"evaluator_student_id"`
	TeamScore         int       `db:"team_score"`
	TeamComment       string    `db:"team_comment"`
	CreatedAt         time.Time `db:"created_at"`
	EvaluatorName     string    `db:"evaluator_name"`
	EvaluatorTeamName string    `db:"evaluator_team_name"`
	EvaluatedTeamName string    `db:"evaluated_team_name"`
}

func (r teamEvalRow) toEval() evaluation.TeamEvaluation {
	return evaluation.TeamEvaluation{
		ID:                r.ID,
		AssignmentID:      r.AssignmentID,
		EvaluatedTeamID:   r.EvaluatedTeamID,
		EvaluatorID:       r.EvaluatorID,
		TeamScore:         r.TeamScore,
		TeamComment:       r.TeamComment,
		CreatedAt:         r.CreatedAt,
		EvaluatorName:     r.EvaluatorName,
		EvaluatorTeamName: r.EvaluatorTeamName,
		EvaluatedTeamName: r.EvaluatedTeamName,
	}
}

// selectTeamEval joins in the display names the review and report views need.
const selectTeamEval = `
SELECT te.id, te.assignment_id, te.evaluated_team_id, te.evaluator_student_id,
	te.team_score, te.team_comment, te.created_at,
	ev.name AS evaluator_name, evt.name AS evaluator_team_name, tt.name AS evaluated_team_name
FROM team_evaluations te
JOIN students ev ON ev.id = te.evaluator_student_id
JOIN teams evt ON evt.id = ev.team_id
JOIN teams tt ON tt.id = te.evaluated_team_id`

func (repo *evaluationRepository) ReplaceTeamEvaluation(ctx context.Context, te evaluation.TeamEvaluation) (evaluation.TeamEvaluation, error) {
	txx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return evaluation.TeamEvaluation{}, errors.Wrap(err, "beginning transaction")
	}
	var tx core.DBTransactor = txx
	defer func() { _ = tx.Rollback() }()

	if err = repo.deletePreviousEvaluation(ctx, tx, te); err != nil {
		return evaluation.TeamEvaluation{}, err
	}

	te.ID = uuid.NewString()
	if err = repo.insertTeamEvaluation(ctx, tx, te); err != nil {
		return evaluation.TeamEvaluation{}, err
	}
	for i := range te.Members {
		te.Members[i].ID = uuid.NewString()
		te.Members[i].TeamEvaluationID = te.ID
		if err = repo.insertMemberEvaluation(ctx, tx, te.Members[i]); err != nil {
			return evaluation.TeamEvaluation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return evaluation.TeamEvaluation{}, errors.Wrap(err, "committing evaluation")
	}
	return te, nil
}

func (repo *evaluationRepository) deletePreviousEvaluation(ctx context.Context, exec core.DBExecutor, te evaluation.TeamEvaluation) error {
	// member evaluations cascade with their parent
	query := `DELETE FROM team_evaluations WHERE assignment_id = $1 AND evaluated_team_id = $2 AND evaluator_student_id = $3`
	if _, err := exec.ExecContext(ctx, query, te.AssignmentID, te.EvaluatedTeamID, te.EvaluatorID); err != nil {
		return errors.Wrap(err, "deleting previous evaluation")
	}
	return nil
}

func (repo *evaluationRepository) insertTeamEvaluation(ctx context.Context, exec core.DBExecutor, te evaluation.TeamEvaluation) error {
	query := `
INSERT INTO team_evaluations (id, assignment_id, evaluated_team_id, evaluator_student_id, team_score, team_comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := exec.ExecContext(ctx, query,
		te.ID, te.AssignmentID, te.EvaluatedTeamID, te.EvaluatorID, te.TeamScore, te.TeamComment, te.CreatedAt,
	); err != nil {
		return errors.Wrap(err, "inserting team evaluation")
	}
	return nil
}

func (repo *evaluationRepository) insertMemberEvaluation(ctx context.Context, exec core.DBExecutor, m evaluation.MemberEvaluation) error {
	query := `
INSERT INTO member_evaluations (id, team_evaluation_id, evaluated_student_id, score, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := exec.ExecContext(ctx, query, m.ID, m.TeamEvaluationID, m.EvaluatedStudentID, m.Score, m.Comment, m.CreatedAt); err != nil {
		return errors.Wrap(err, "inserting member evaluation")
	}
	return nil
}

func (repo *evaluationRepository) TeamEvaluationExists(ctx context.Context, assignmentID, teamID, evaluatorID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM team_evaluations WHERE assignment_id = $1 AND evaluated_team_id = $2 AND evaluator_student_id = $3`
	if err := repo.db.GetContext(ctx, &count, query, assignmentID, teamID, evaluatorID); err != nil {
		return false, errors.Wrap(err, "checking evaluation existence")
	}
	return count > 0, nil
}

func (repo *evaluationRepository) QueryTeamEvaluationsByAssignment(ctx context.Context, assignmentID string) ([]evaluation.TeamEvaluation, error) {
	var rows []teamEvalRow
	query := selectTeamEval + ` WHERE te.assignment_id = $1 ORDER BY ` + teamEvalOrdering.String()
	if err := repo.db.SelectContext(ctx, &rows, query, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying assignment evaluations")
	}
	return repo.attachMembers(ctx, rows)
}

func (repo *evaluationRepository) QueryTeamEvaluationsForTeam(ctx context.Context, assignmentID, teamID string) ([]evaluation.TeamEvaluation, error) {
	var rows []teamEvalRow
	query := selectTeamEval + ` WHERE te.assignment_id = $1 AND te.evaluated_team_id = $2 ORDER BY ` + teamEvalOrdering.String()
	if err := repo.db.SelectContext(ctx, &rows, query, assignmentID, teamID); err != nil {
		return nil, errors.Wrap(err, "querying team evaluations")
	}
	return repo.attachMembers(ctx, rows)
}

func (repo *evaluationRepository) QueryMemberEvaluationsForStudent(ctx context.Context, assignmentID, studentID string) ([]evaluation.MemberEvaluation, error) {
	query := `
SELECT me.id, me.team_evaluation_id, me.evaluated_student_id, me.score, me.comment, me.created_at,
	std.name AS evaluated_student_name, ev.name AS evaluator_name
FROM member_evaluations me
JOIN team_evaluations te ON te.id = me.team_evaluation_id
JOIN students std ON std.id = me.evaluated_student_id
JOIN students ev ON ev.id = te.evaluator_student_id
WHERE te.assignment_id = $1 AND me.evaluated_student_id = $2
ORDER BY ` + memberEvalOrdering.String()
	rows, err := repo.db.QueryContext(ctx, query, assignmentID, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying member evaluations")
	}
	defer func() { _ = rows.Close() }()

	var evals []evaluation.MemberEvaluation
	for rows.Next() {
		var m evaluation.MemberEvaluation
		if err = rows.Scan(&m.ID, &m.TeamEvaluationID, &m.EvaluatedStudentID, &m.Score, &m.Comment, &m.CreatedAt,
			&m.EvaluatedStudentName, &m.EvaluatorName); err != nil {
			return nil, errors.Wrap(err, "scanning member evaluation")
		}
		evals = append(evals, m)
	}
	return evals, rows.Err()
}

func (repo *evaluationRepository) QueryEvaluatedAssignmentIDs(ctx context.Context, evaluatorID string) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT assignment_id FROM team_evaluations WHERE evaluator_student_id = $1`
	if err := repo.db.SelectContext(ctx, &ids, query, evaluatorID); err != nil {
		return nil, errors.Wrap(err, "querying evaluated assignments")
	}
	return ids, nil
}

func (repo *evaluationRepository) attachMembers(ctx context.Context, rows []teamEvalRow) ([]evaluation.TeamEvaluation, error) {
	evals := make([]evaluation.TeamEvaluation, 0, len(rows))
	for _, r := range rows {
		te := r.toEval()
		members, err := repo.queryMembers(ctx, repo.db, te.ID)
		if err != nil {
			return nil, err
		}
		te.Members = members
		evals = append(evals, te)
	}
	return evals, nil
}

func (repo *evaluationRepository) queryMembers(ctx context.Context, exec core.DBExecutor, teamEvalID string) ([]evaluation.MemberEvaluation, error) {
	query := `
SELECT me.id, me.team_evaluation_id, me.evaluated_student_id, me.score, me.comment, me.created_at,
	std.name AS evaluated_student_name
FROM member_evaluations me
JOIN students std ON std.id = me.evaluated_student_id
WHERE me.team_evaluation_id = $1
ORDER BY ` + memberEvalOrdering.String()
	rows, err := exec.QueryContext(ctx, query, teamEvalID)
	if err != nil {
		return nil, errors.Wrap(err, "querying member evaluations")
	}
	defer func() { _ = rows.Close() }()

	var members []evaluation.MemberEvaluation
	for rows.Next() {
		var m evaluation.MemberEvaluation
		if err = rows.Scan(&m.ID, &m.TeamEvaluationID, &m.EvaluatedStudentID, &m.Score, &m.Comment, &m.CreatedAt,
			&m.EvaluatedStudentName); err != nil {
			return nil, errors.Wrap(err, "scanning member evaluation")
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
