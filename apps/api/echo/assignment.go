package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core/assignment"
	"github.com/nkashama/tathmini/core/class"
)

type assignmentApi struct {
	svc      *assignment.Service
	classSvc *class.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := assignmentApi{
		svc:      deps.AsgSvc,
		classSvc: deps.ClassSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/classes/:id/assignments", jwt, teacherMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create)

	ag := g.Group("/assignments", jwt, teacherMiddleware())
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

// ownAssignment resolves a path assignment id and checks the caller owns its
// class. Foreign assignments read as not found.
func (api *assignmentApi) ownAssignment(ctx echo.Context, id string) (assignment.Assignment, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "getting context claims")
	}
	asg, err := api.svc.Get(ctx.Request().Context(), id)
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

func (api *assignmentApi) ownClass(ctx echo.Context, id string) (class.Class, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "getting context claims")
	}
	cls, err := api.classSvc.GetClass(ctx.Request().Context(), id)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "finding class by ID")
	}
	if cls.TeacherID != claims.Subject {
		return class.Class{}, errHttpNotFound
	}
	return cls, nil
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	asgs, err := api.svc.Query(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.ownClass(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	asg, err := api.svc.Create(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	asg, err := api.ownAssignment(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	merged, err := data.Validate(asg, api.validate)
	if err != nil {
		return err
	}

	asg, err = api.svc.Update(ctx.Request().Context(), merged)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	asg, err := api.ownAssignment(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), asg.ClassID, asg.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
