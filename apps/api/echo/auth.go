package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nkashama/tathmini/core"
	"github.com/nkashama/tathmini/core/class"
	"github.com/nkashama/tathmini/core/user"
)

// Session roles carried in JWT claims.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleGuest   = "guest"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	// The signing key is wired at server construction.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	appConf *core.Config
)

// initAuth wires the config the auth helpers sign and time tokens with.
// Called once by NewServer.
func initAuth(conf *core.Config) {
	appJWTConfig.SigningKey = []byte(conf.SecretKey)
	appConf = conf
}

// Claims represents the authorization claims transmitted via a JWT.
// Teacher sessions carry the account id as Subject; student and guest
// sessions carry the student record id plus their class and team.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	ClassID      string `json:"class_id,omitempty"`
	TeamID       string `json:"team_id,omitempty"`
}

func (c Claims) IsTeacher() bool { return c.Role == RoleTeacher }
func (c Claims) IsStudent() bool { return c.Role == RoleStudent || c.Role == RoleGuest }

func GetTeacherClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appConf.AppName,
			Subject:   usr.ID,
			Audience:  "Classroom",
			ExpiresAt: now.Add(appConf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         RoleTeacher,
	}
}

// GetStudentClaims builds a short-lived session for a student or guest.
// An earlier access-link expiry caps the session.
func GetStudentClaims(std class.Student) *Claims {
	now := time.Now()
	exp := now.Add(appConf.Server.StudentSessionDelta)
	if !std.AccessExpiresAt.IsZero() && std.AccessExpiresAt.Before(exp) {
		exp = std.AccessExpiresAt
	}

	role := RoleStudent
	if std.IsGuest() {
		role = RoleGuest
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appConf.AppName,
			Subject:   std.ID,
			Audience:  "Classroom",
			ExpiresAt: exp.Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Unix(),
		Name:         std.Name,
		Role:         role,
		ClassID:      std.ClassID,
		TeamID:       std.TeamID,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// refreshToken re-issues a teacher token as long as the original issue time
// is within the refresh window. Student sessions are not refreshable; they
// re-login with their passcode instead.
func refreshToken(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	if !claims.IsTeacher() {
		return "", errHttpForbidden
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "finding user by ID")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(appConf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetTeacherClaims(usr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
