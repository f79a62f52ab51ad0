package user

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core"
)

const passwordResetTemplate = "password_reset"

// PasswordResetData is the template data of the password_reset email.
type PasswordResetData struct {
	Name string
	URL  string
}

// PasswordReset runs the "forgot password" flow: a signed link is emailed, then exchanged for a new password.
type PasswordReset struct {
	svc         *Service
	tokens      *TokenGenerator
	mailSvc     core.EmailService
	frontendURL string
}

func NewPasswordReset(conf *core.Config, svc *Service, mailSvc core.EmailService) *PasswordReset {
	return &PasswordReset{
		svc:         svc,
		tokens:      NewTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta),
		mailSvc:     mailSvc,
		frontendURL: conf.FrontendURL,
	}
}

// Request emails a reset link to the active user owning email.
// It returns ErrNotFound when there is no such user.
func (pr *PasswordReset) Request(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return ErrNotFound
	}
	usr, err := pr.svc.repo.GetUser(ctx, GetFilter{Email: email})
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	url := pr.frontendURL + "/password-reset/" + EncodeUID(usr) + "/" + pr.tokens.MakeToken(usr)
	pr.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Reset your password",
		TemplateName: passwordResetTemplate,
		TemplateData: PasswordResetData{Name: usr.Name, URL: url},
	})
	return nil
}

// Confirm sets the new password of the user the reset link was issued to. data must have been validated.
// Bad or expired links are reported on the "token" field.
func (pr *PasswordReset) Confirm(ctx context.Context, data ResetUserPassword) error {
	invalid := func(err error) error { return core.NewFieldValidationError("token", err) }

	id, err := DecodeUID(data.UID)
	if err != nil {
		return invalid(err)
	}
	usr, err := pr.svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid(ErrInvalidToken)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return invalid(ErrInvalidToken)
	}
	if err := pr.tokens.VerifyToken(usr, data.Token); err != nil {
		return invalid(err)
	}

	_, err = pr.svc.ResetPassword(ctx, usr, data.Password)
	return err
}
