package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core/class"
)

// joinApi serves the public class-join flow behind a signed access link.
type joinApi struct {
	svc      *class.Service
	validate *validator.Validate
}

func registerJoinAPI(g *echo.Group, deps *ServerDeps) {
	api := joinApi{
		svc:      deps.ClassSvc,
		validate: deps.Validate,
	}

	jg := g.Group("/join")
	jg.GET("/:token", api.preview)
	jg.POST("/:token", api.join)
}

// Handlers

// preview validates an access link and returns the class and its joinable
// teams for the picker. Guests join via the is_guest flag, so the Guests
// team is not listed either.
func (api *joinApi) preview(ctx echo.Context) error {
	cls, err := api.svc.CheckAccessToken(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return errors.Wrap(err, "checking access token")
	}

	teams, err := api.svc.QueryTeams(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying teams")
	}
	joinable := make([]class.Team, 0, len(teams))
	for _, t := range teams {
		if t.IsGuests() {
			continue
		}
		joinable = append(joinable, t)
	}

	return ctx.JSON(http.StatusOK, JoinPreviewResponse{Class: cls, Teams: joinable})
}

// join admits the caller into the class: claiming a pre-added record by
// student number, creating a fresh one, or landing a guest in the Guests
// team. A session token and device cookie are issued immediately.
func (api *joinApi) join(ctx echo.Context) error {
	var data class.JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Join(ctx.Request().Context(), ctx.Param("token"), data)
	if err != nil {
		return errors.Wrap(err, "joining class")
	}

	token, err := GenerateToken(GetStudentClaims(std))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	role := RoleStudent
	if std.IsGuest() {
		role = RoleGuest
	}
	setDeviceCookie(ctx, std.DeviceToken)
	return ctx.JSON(http.StatusCreated, LoginResponse{
		Token:   token,
		Role:    role,
		Name:    std.Name,
		ClassID: std.ClassID,
		TeamID:  std.TeamID,
	})
}

type JoinPreviewResponse struct {
	Class class.Class  `json:"class"`
	Teams []class.Team `json:"teams"`
}
