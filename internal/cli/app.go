package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// AuthService is the part of the auth service the menu drives.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) (*models.DeliveryResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyToken(ctx context.Context, token string) (*models.SessionInfo, error)
}

const menu = `
=== Auth Testing Menu ===
1. Register
2. Login
3. Forgot Password
4. Reset Password
5. Exit
6. Verify Token
`

// App is the interactive menu.
type App struct {
	svc          AuthService
	in           *prompter
	out          io.Writer
	sessionToken string
}

// NewApp creates an App reading from in and writing to out. fd is the file
// descriptor behind in, used to read passwords without echo; pass -1 when in
// is not a terminal.
func NewApp(svc AuthService, in io.Reader, out io.Writer, fd int) *App {
	return &App{
		svc: svc,
		in:  newPrompter(in, out, fd),
		out: out,
	}
}

// Run shows the menu until the user exits, the input ends or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.println("Starting Auth System CLI Test...")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.print(menu)
		choice, err := a.in.Line("\nSelect action (1-6): ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.println("\nExiting...")
				return nil
			}
			return err
		}

		switch choice {
		case "1":
			a.register(ctx)
		case "2":
			a.login(ctx)
		case "3":
			a.forgotPassword(ctx)
		case "4":
			a.resetPassword(ctx)
		case "5":
			a.println("Exiting...")
			return nil
		case "6":
			a.verifyToken(ctx)
		default:
			a.println("Invalid choice. Please try again.")
		}
	}
}

func (a *App) register(ctx context.Context) {
	email, err := a.in.Line("Enter email: ")
	if err != nil {
		a.inputError(err)
		return
	}
	password, err := a.in.Secret("Enter password: ")
	if err != nil {
		a.inputError(err)
		return
	}

	result, err := a.svc.Register(ctx, email, password)
	if err != nil {
		a.failure("Registration error", err)
		return
	}

	a.println("\nRegistration successful!")
	a.printf("User ID: %d\n", result.UserID)
}

func (a *App) login(ctx context.Context) {
	email, err := a.in.Line("Enter email: ")
	if err != nil {
		a.inputError(err)
		return
	}
	password, err := a.in.Secret("Enter password: ")
	if err != nil {
		a.inputError(err)
		return
	}

	result, err := a.svc.Login(ctx, email, password)
	if err != nil {
		a.failure("Login error", err)
		return
	}

	a.sessionToken = result.Token
	a.println("\nLogin successful!")
	a.printf("Token: %s\n", result.Token)
	a.printf("Expires: %s\n", result.ExpiresAt.Format(time.RFC3339))
	a.printf("User: id=%d email=%s\n", result.UserID, result.Email)
}

func (a *App) forgotPassword(ctx context.Context) {
	email, err := a.in.Line("Enter email for password reset: ")
	if err != nil {
		a.inputError(err)
		return
	}

	a.println("\nProcessing password reset request...")
	result, err := a.svc.ForgotPassword(ctx, email)
	if err != nil {
		a.println("\n=== Email Sending Error ===")
		a.println("Status: Failed")
		a.printf("Error Details: %s\n", describe(err))
		a.println("===========================")
		return
	}

	a.println("\n=== Email Sending Results ===")
	if result.Delivered {
		a.println("Status: Success")
		a.printf("Message ID: %s\n", result.MessageID)
		a.printf("Accepted Recipients: %s\n", strings.Join(result.Accepted, ", "))
		a.printf("Token valid until: %s\n", result.ExpiresAt.Format(time.RFC3339))
	} else {
		a.println("Status: Failed")
	}
	a.println("=============================")
}

func (a *App) resetPassword(ctx context.Context) {
	token, err := a.in.Line("Enter reset token from email: ")
	if err != nil {
		a.inputError(err)
		return
	}
	if err := utils.GetValidator().Var(token, "required,len=64,hexadecimal"); err != nil {
		a.println("\nPassword reset error: a reset token is 64 hexadecimal characters")
		return
	}
	newPassword, err := a.in.Secret("Enter new password: ")
	if err != nil {
		a.inputError(err)
		return
	}

	if err := a.svc.ResetPassword(ctx, token, newPassword); err != nil {
		a.failure("Password reset error", err)
		return
	}
	a.println("\nPassword successfully reset!")
}

func (a *App) verifyToken(ctx context.Context) {
	prompt := "Enter session token: "
	if a.sessionToken != "" {
		prompt = "Enter session token (empty for the last login): "
	}
	token, err := a.in.Line(prompt)
	if err != nil {
		a.inputError(err)
		return
	}
	if token == "" {
		token = a.sessionToken
	}

	info, err := a.svc.VerifyToken(ctx, token)
	if err != nil {
		a.failure("Token verification error", err)
		return
	}

	a.println("\nToken is valid")
	a.printf("User: id=%d email=%s\n", info.UserID, info.Email)
	a.printf("Issued: %s\n", info.IssuedAt.Format(time.RFC3339))
	a.printf("Expires: %s\n", info.ExpiresAt.Format(time.RFC3339))
}

func (a *App) failure(action string, err error) {
	a.printf("\n%s: %s\n", action, describe(err))
}

func (a *App) inputError(err error) {
	log.Debug().Err(err).Msg("Failed to read input")
	a.printf("\nInput error: %v\n", err)
}

// describe renders an error for the operator. Infrastructure failures carry
// their cause, which an HTTP client would never see.
func describe(err error) string {
	appErr := utils.ParseError(err)
	if appErr.Cause != nil {
		return fmt.Sprintf("%s (%v)", appErr.Message, appErr.Cause)
	}
	return appErr.Error()
}

func (a *App) print(s string) {
	fmt.Fprint(a.out, s)
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
