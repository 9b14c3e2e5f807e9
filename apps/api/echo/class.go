package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core/class"
)

type classApi struct {
	svc      *class.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := classApi{
		svc:      deps.ClassSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/classes", jwt, teacherMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id/teams", api.queryTeams)
	cg.POST("/:id/teams", api.createTeam)
	cg.DELETE("/:id/teams/:teamID", api.destroyTeam)
	cg.GET("/:id/teams/:teamID/members", api.teamMembers)
	cg.GET("/:id/students", api.queryStudents)
	cg.DELETE("/:id/students/:studentID", api.destroyStudent)
	cg.POST("/:id/access-link", api.issueAccessLink)

	tg := g.Group("/teams", jwt, teacherMiddleware())
	tg.POST("/:id/students", api.addStudents)
}

// ownClass resolves a path class id and checks the caller owns it.
// Foreign classes read as not found, never as forbidden.
func (api *classApi) ownClass(ctx echo.Context, id string) (class.Class, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "getting context claims")
	}
	cls, err := api.svc.GetClass(ctx.Request().Context(), id)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "finding class by ID")
	}
	if cls.TeacherID != claims.Subject {
		return class.Class{}, errHttpNotFound
	}
	return cls, nil
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) queryTeams(ctx echo.Context) error {
	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	teams, err := api.svc.QueryTeams(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying teams")
	}
	if teams == nil {
		teams = []class.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *classApi) createTeam(ctx echo.Context) error {
	var data class.NewTeam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	team, err := api.svc.CreateTeam(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating team")
	}
	return ctx.JSON(http.StatusCreated, team)
}

func (api *classApi) destroyTeam(ctx echo.Context) error {
	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	if err := api.svc.DeleteTeam(ctx.Request().Context(), cls.ID, ctx.Param("teamID")); err != nil {
		return errors.Wrap(err, "deleting team")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) teamMembers(ctx echo.Context) error {
	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	members, err := api.svc.TeamMembers(ctx.Request().Context(), cls.ID, ctx.Param("teamID"))
	if err != nil {
		return errors.Wrap(err, "querying team members")
	}
	if members == nil {
		members = []class.Student{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *classApi) queryStudents(ctx echo.Context) error {
	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	students, err := api.svc.ClassStudents(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []class.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) destroyStudent(ctx echo.Context) error {
	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	if err := api.svc.DeleteStudent(ctx.Request().Context(), cls.ID, ctx.Param("studentID")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) issueAccessLink(ctx echo.Context) error {
	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	link, err := api.svc.IssueAccessLink(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "issuing access link")
	}
	return ctx.JSON(http.StatusCreated, link)
}

// addStudents bulk-adds a pasted roster to a team: "Full Name SID" per line
// for regular teams, a bare name per line for the Guests team.
func (api *classApi) addStudents(ctx echo.Context) error {
	var data class.RosterInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RosterInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	team, err := api.svc.GetTeam(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding team by ID")
	}
	if _, err = api.ownClass(ctx, team.ClassID); err != nil {
		return err
	}

	added, err := api.svc.AddStudents(ctx.Request().Context(), team.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding students")
	}
	if added == nil {
		added = []class.RosterEntry{}
	}
	return ctx.JSON(http.StatusCreated, added)
}
