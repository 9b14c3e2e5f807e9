package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/evaluation"
)

type evaluationApi struct {
	svc      *evaluation.Service
	asgSvc   *assignment.Service
	classSvc *class.Service
	validate *validator.Validate
}

func registerEvaluationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := evaluationApi{
		svc:      deps.EvalSvc,
		asgSvc:   deps.AsgSvc,
		classSvc: deps.ClassSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/evaluations", jwt)
	eg.POST("", api.submit)
	eg.GET("/check/:assignmentID/:teamID", api.check)

	tg := g.Group("/teacher", jwt, teacherMiddleware())
	tg.GET("/evaluations/:assignmentID", api.review)
	tg.GET("/report/:studentID/:assignmentID", api.report)
}

// Handlers

// submit stores an evaluation for the caller, replacing any previous one for
// the same assignment and team. Teachers evaluate through a record
// provisioned in the reserved "Teachers" team.
func (api *evaluationApi) submit(ctx echo.Context) error {
	var data evaluation.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ev := evaluation.Evaluator{
		Name:      claims.Name,
		IsTeacher: claims.IsTeacher(),
	}
	if !ev.IsTeacher {
		ev.StudentID = claims.Subject
		ev.TeamID = claims.TeamID
	}

	te, err := api.svc.Submit(ctx.Request().Context(), ev, data)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}
	return ctx.JSON(http.StatusCreated, te)
}

// check probes for a prior submission so the client can warn that a new one
// replaces it.
func (api *evaluationApi) check(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	exists, err := api.svc.Exists(
		ctx.Request().Context(),
		ctx.Param("assignmentID"),
		ctx.Param("teamID"),
		claims.Subject,
	)
	if err != nil {
		return errors.Wrap(err, "checking evaluation")
	}
	return ctx.JSON(http.StatusOK, CheckResponse{Exists: exists})
}

func (api *evaluationApi) review(ctx echo.Context) error {
	asg, err := api.ownAssignment(ctx, ctx.Param("assignmentID"))
	if err != nil {
		return err
	}

	groups, err := api.svc.Review(ctx.Request().Context(), asg.ID)
	if err != nil {
		return errors.Wrap(err, "querying evaluations for review")
	}
	if groups == nil {
		groups = []evaluation.ReviewGroup{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *evaluationApi) report(ctx echo.Context) error {
	asg, err := api.ownAssignment(ctx, ctx.Param("assignmentID"))
	if err != nil {
		return err
	}

	std, err := api.classSvc.GetStudent(ctx.Request().Context(), ctx.Param("studentID"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if std.ClassID != asg.ClassID {
		return errHttpNotFound
	}

	report, err := api.svc.BuildReport(ctx.Request().Context(), std.ID, asg.ID)
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *evaluationApi) ownAssignment(ctx echo.Context, id string) (assignment.Assignment, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "getting context claims")
	}
	asg, err := api.asgSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	cls, err := api.classSvc.GetClass(ctx.Request().Context(), asg.ClassID)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "finding class by ID")
	}
	if cls.TeacherID != claims.Subject {
		return assignment.Assignment{}, errHttpNotFound
	}
	return asg, nil
}

type CheckResponse struct {
	Exists bool `json:"exists"`
}
