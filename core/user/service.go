package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/nkashama/tathmini/core"
)

var (
	// errors
	ErrNotFound     = errors.New("user not found")
	ErrEmailExists  = errors.New("a user with this email already exists")
	ErrEmailDomain  = errors.New("email is not in the allowed school domain")
	ErrInvalidCode  = errors.New("invalid or expired verification code")
	ErrCodeNotFound = errors.New("verification code not found")
	ErrNotActive    = errors.New("account is deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id string, t time.Time) error

		SaveVerificationCode(ctx context.Context, vc VerificationCode) error
		GetVerificationCode(ctx context.Context, email string) (VerificationCode, error)
		DeleteVerificationCode(ctx context.Context, email string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	Init(conf)
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

func (svc *Service) checkUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// RequestVerification emails a registration code to a school email address.
// Addresses outside the configured teacher domain are rejected.
func (svc *Service) RequestVerification(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if !strings.HasSuffix(email, "@"+svc.conf.TeacherEmailDomain) {
		return core.NewValidationError(ErrEmailDomain, core.FieldError{Field: "email", Error: ErrEmailDomain.Error()})
	}
	if err := svc.checkUniqueness(email); err != nil {
		return err
	}

	code := randomCode(6)
	vc := VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(svc.conf.Server.VerificationCodeDelta),
	}
	if err := svc.repo.SaveVerificationCode(ctx, vc); err != nil {
		return err
	}
	svc.sendVerificationCodeMail(email, code)
	return nil
}

// Register creates a teacher account once the emailed code checks out.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	vc, err := svc.repo.GetVerificationCode(ctx, nu.Email)
	if err != nil {
		if err == ErrCodeNotFound {
			return User{}, core.NewValidationError(ErrInvalidCode, core.FieldError{Field: "code", Error: ErrInvalidCode.Error()})
		}
		return User{}, err
	}
	if vc.Code != nu.Code || vc.Expired(time.Now().UTC()) {
		return User{}, core.NewValidationError(ErrInvalidCode, core.FieldError{Field: "code", Error: ErrInvalidCode.Error()})
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	if err = svc.repo.DeleteVerificationCode(ctx, nu.Email); err != nil {
		svc.logger.Error(fmt.Sprintf("deleting verification code for %s: %v", nu.Email, err), err)
	}
	return usr, nil
}

// Authenticate checks a teacher's credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrNotActive
	}
	if err = usr.CheckPassword(password); err != nil {
		return User{}, err
	}
	usr.LastLogin = time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, usr.LastLogin); err != nil {
		svc.logger.Error(fmt.Sprintf("recording last login for %s: %v", usr.Email, err), err)
	}
	return usr, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	usr.UpdatedAt = time.Now().UTC()
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset emails a signed reset link to the account's address.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

// ResetPassword consumes a reset link's uid and token to set a new password.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, errInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		return User{}, err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) sendVerificationCodeMail(email, code string) {
	msg := core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      fmt.Sprintf("%s verification code", svc.conf.AppName),
		TemplateName: "verification-code",
		TemplateData: struct {
			Code    string
			Minutes int
		}{code, int(svc.conf.Server.VerificationCodeDelta.Minutes())},
	}
	svc.mailSvc.SendMessages(&msg)
}

func (svc *Service) sendPasswordResetMail(usr User) {
	msg := core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("%s password reset", svc.conf.AppName),
		TemplateName: "password-reset",
		TemplateData: struct {
			Name string
			Path string
		}{usr.Name, fmt.Sprintf("/password-reset/%s/%s", EncodeUID(usr), makeToken(usr))},
	}
	svc.mailSvc.SendMessages(&msg)
}

// randomCode returns n cryptographically random decimal digits.
func randomCode(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		d, _ := rand.Int(rand.Reader, big.NewInt(10))
		sb.WriteString(d.String())
	}
	return sb.String()
}
