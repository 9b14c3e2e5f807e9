package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/evaluation"
)

// studentApi serves the student dashboard: the caller's class assignments
// with live status, and the teams they may evaluate.
type studentApi struct {
	classSvc *class.Service
	asgSvc   *assignment.Service
	evalSvc  *evaluation.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := studentApi{
		classSvc: deps.ClassSvc,
		asgSvc:   deps.AsgSvc,
		evalSvc:  deps.EvalSvc,
	}

	sg := g.Group("/student", jwt, studentMiddleware())
	sg.GET("/assignments", api.queryAssignments)
	sg.GET("/teams", api.queryTeams)
}

// Handlers

func (api *studentApi) queryAssignments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	submitted, err := api.evalSvc.SubmittedSet(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying submitted assignments")
	}

	views, err := api.asgSvc.StudentViews(
		ctx.Request().Context(),
		claims.ClassID,
		time.Now().UTC(),
		func(id string) bool { return submitted[id] },
	)
	if err != nil {
		return errors.Wrap(err, "querying assignment views")
	}
	if views == nil {
		views = []assignment.View{}
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *studentApi) queryTeams(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	teams, err := api.classSvc.EvaluableTeamsFor(ctx.Request().Context(), claims.ClassID, claims.TeamID)
	if err != nil {
		return errors.Wrap(err, "querying evaluable teams")
	}
	if teams == nil {
		teams = []class.Team{}
	}
	return ctx.JSON(http.StatusOK, EvaluableTeamsResponse{Teams: teams, MyTeamID: claims.TeamID})
}

type EvaluableTeamsResponse struct {
	Teams    []class.Team `json:"teams"`
	MyTeamID string       `json:"my_team_id"`
}
