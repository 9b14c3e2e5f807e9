package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/user"
)

const deviceCookieName = "device_token"

type authApi struct {
	userSvc    *user.Service
	classSvc   *class.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := authApi{
		userSvc:    deps.UserSvc,
		classSvc:   deps.ClassSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	limiter := rateLimitMiddleware(time.Second, 5)

	ag := g.Group("/auth")
	ag.POST("/login", api.login, limiter)
	ag.POST("/select-class", api.selectClass, limiter)
	ag.POST("/register", api.requestVerification, limiter)
	ag.POST("/register/verify", api.verifyRegistration, limiter)
	ag.POST("/password-reset", api.resetPassword, limiter)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

// login dispatches on the payload shape: an email means a teacher login,
// guest_login a guest login, otherwise a student name + passcode login.
func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Clean()

	switch {
	case data.Email != "":
		return api.loginTeacher(ctx, data)
	case data.GuestLogin:
		return api.loginStudent(ctx, data.Name, data.Passcode, true)
	case data.StudentName != "" || data.Passcode != "":
		return api.loginStudent(ctx, data.StudentName, data.Passcode, false)
	}
	return core.NewValidationError(errors.New("provide an email or a name and passcode"))
}

func (api *authApi) loginTeacher(ctx echo.Context, data LoginRequest) error {
	if data.Password == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: "this field is required"})
	}

	usr, err := api.userSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrNotFound, bcrypt.ErrMismatchedHashAndPassword:
			return core.NewValidationError(errors.New("invalid credentials"))
		case user.ErrNotActive:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(GetTeacherClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Role: RoleTeacher, Name: usr.Name})
}

func (api *authApi) loginStudent(ctx echo.Context, name, passcode string, guest bool) error {
	if name == "" || passcode == "" {
		return core.NewValidationError(errors.New("provide a name and passcode"))
	}

	found, err := api.classSvc.FindStudentsByName(ctx.Request().Context(), name)
	if err != nil {
		return errors.Wrap(err, "finding students by name")
	}

	var matches []class.Student
	for _, std := range found {
		if guest != std.IsGuest() || std.IsTeacherRecord() {
			continue
		}
		if std.CheckPasscode(passcode) == nil {
			matches = append(matches, std)
		}
	}
	if len(matches) == 0 {
		return errInvalidPasscode
	}

	// same name and passcode across several classes: let the client pick
	if len(matches) > 1 {
		options := make([]ClassOption, 0, len(matches))
		for _, std := range matches {
			cls, err := api.classSvc.GetClass(ctx.Request().Context(), std.ClassID)
			if err != nil {
				return errors.Wrap(err, "finding class by ID")
			}
			options = append(options, ClassOption{
				StudentID: std.ID,
				ClassID:   cls.ID,
				ClassName: cls.Name,
				TeamID:    std.TeamID,
			})
		}
		return ctx.JSON(http.StatusOK, LoginResponse{MultipleClasses: true, Classes: options})
	}

	return api.completeStudentLogin(ctx, matches[0])
}

// selectClass completes a multi-class login; the passcode is re-verified so
// the chosen student id cannot be swapped for someone else's.
func (api *authApi) selectClass(ctx echo.Context) error {
	var data SelectClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SelectClassRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.classSvc.GetStudent(ctx.Request().Context(), data.StudentID)
	if err != nil {
		if errors.Cause(err) == class.ErrStudentNotFound {
			return errInvalidPasscode
		}
		return errors.Wrap(err, "finding student by ID")
	}
	if std.CheckPasscode(data.Passcode) != nil {
		return errInvalidPasscode
	}

	return api.completeStudentLogin(ctx, std)
}

func (api *authApi) completeStudentLogin(ctx echo.Context, std class.Student) error {
	if std.AccessExpired(time.Now().UTC()) {
		return errAccessExpired
	}

	if std.DeviceToken != "" {
		cookie, err := ctx.Cookie(deviceCookieName)
		if err != nil || cookie.Value != std.DeviceToken {
			return errDeviceLocked
		}
	} else {
		var err error
		if std, err = api.classSvc.LockToDevice(ctx.Request().Context(), std); err != nil {
			return errors.Wrap(err, "locking student to device")
		}
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
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		Role:    role,
		Name:    std.Name,
		ClassID: std.ClassID,
		TeamID:  std.TeamID,
	})
}

func (api *authApi) requestVerification(ctx echo.Context) error {
	var data user.VerificationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerificationRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.userSvc.RequestVerification(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "requesting verification")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "A verification code has been emailed to you. It expires shortly; use it to complete registration.",
	})
}

func (api *authApi) verifyRegistration(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.userSvc); err != nil {
		return err
	}

	usr, err := api.userSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.userSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.userSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Role: RoleTeacher})
}

func setDeviceCookie(ctx echo.Context, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     deviceCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
	})
}

type (
	LoginRequest struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		StudentName string `json:"student_name"`
		Name        string `json:"name"`
		Passcode    string `json:"passcode"`
		GuestLogin  bool   `json:"guest_login"`
	}

	LoginResponse struct {
		Token           string        `json:"token,omitempty"`
		Role            string        `json:"role,omitempty"`
		Name            string        `json:"name,omitempty"`
		ClassID         string        `json:"class_id,omitempty"`
		TeamID          string        `json:"team_id,omitempty"`
		MultipleClasses bool          `json:"multiple_classes,omitempty"`
		Classes         []ClassOption `json:"classes,omitempty"`
	}

	// ClassOption is one entry of the class picker shown when a name and
	// passcode match student records in several classes.
	ClassOption struct {
		StudentID string `json:"student_id"`
		ClassID   string `json:"class_id"`
		ClassName string `json:"class_name"`
		TeamID    string `json:"team_id"`
	}

	SelectClassRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		Passcode  string `json:"passcode" validate:"required"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	lr.StudentName = core.CleanString(lr.StudentName)
	lr.Name = core.CleanString(lr.Name)
	lr.Passcode = core.CleanString(lr.Passcode)
}

func (sr *SelectClassRequest) Validate(validate *validator.Validate) error {
	sr.Passcode = core.CleanString(sr.Passcode)
	return validate.Struct(sr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
