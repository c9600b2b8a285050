package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with email and password, or through a provider with the PKCE browser flow.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	client, err := r.backendClient()
	if err != nil {
		return err
	}

	var session *services.Session
	if provider := cmd.String("provider"); provider != "" {
		session, err = r.providerLogin(ctx, client, provider, cmd.Duration("timeout"))
	} else {
		email, password := cmd.String("email"), cmd.String("password")
		if email == "" || password == "" {
			return fmt.Errorf("%w: --email and --password (or --provider) are required", shared.ErrMissingCredentials)
		}
		r.logger.Info("signing in", "email", email)
		session, err = client.SignIn(ctx, email, password)
	}
	if err != nil {
		return err
	}

	return r.storeSession(session)
}

func (r *Runner) providerLogin(ctx context.Context, client *services.Client, provider string, timeout time.Duration) (*services.Session, error) {
	verifier := services.NewVerifier()
	callback := server.NewCallbackHandler(client, verifier, "")
	router := server.NewCallbackRouter(callback, shared.WithLogger(r.logger, "component", "callback"))

	ln, err := server.Listen(r.config.Server.Addr())
	if err != nil {
		return nil, err
	}

	authURL := client.AuthorizeURL(provider, r.config.Server.CallbackURL(), verifier)
	r.logger.Info("starting provider sign-in", "provider", provider, "callback", r.config.Server.CallbackURL())
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("could not open browser", "error", err)
	}
	r.writePlain("Open this URL to sign in:\n%s\n\nWaiting for the callback...\n", authURL)

	res, err := server.WaitForCallback(ctx, ln, router, callback, timeout)
	if err != nil {
		return nil, err
	}
	return res.Session, nil
}

func (r *Runner) storeSession(session *services.Session) error {
	path, err := r.sessionPath()
	if err != nil {
		return err
	}
	if err := services.SaveSession(path, session); err != nil {
		return err
	}
	r.session = session
	r.catalog, r.backend = nil, nil

	email := ""
	if session.User != nil {
		email = session.User.Email
	}
	r.logger.Info("session saved", "path", path)
	return r.writePlain("✓ Signed in as %s (%s)\n", email, session.UserID())
}

// AuthSignup creates an account with email and password.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	email, password := cmd.String("email"), cmd.String("password")
	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password are required", shared.ErrMissingCredentials)
	}

	client, err := r.backendClient()
	if err != nil {
		return err
	}

	r.logger.Info("creating account", "email", email)
	session, err := client.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if session.AccessToken == "" {
		return r.writePlain("✓ Account created. Confirm your email, then run 'encore auth login'.\n")
	}
	return r.storeSession(session)
}

// AuthStatus shows the signed-in user, refreshing the session if it expired.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	client, err := r.backendClient()
	if err != nil {
		return err
	}
	session, err := r.currentSession()
	if err != nil {
		return r.writePlain("✗ Not signed in\n")
	}
	path, err := r.sessionPath()
	if err != nil {
		return err
	}

	_, ts := services.NewSessionSource(client, session, func(s *services.Session) error {
		return services.SaveSession(path, s)
	})
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	user, err := client.User(ctx, tok.AccessToken)
	if err != nil {
		return err
	}

	r.writePlain("✓ Signed in\n")
	r.writePlain("User: %s\n", user.Email)
	r.writePlain("ID: %s\n", user.ID)
	r.writePlain("Token expires: %s\n", tok.Expiry.Format(time.RFC3339))
	return nil
}

// AuthLogout revokes the session remotely when possible and deletes it locally.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	path, err := r.sessionPath()
	if err != nil {
		return err
	}

	if session, err := r.currentSession(); err == nil {
		if client, err := r.backendClient(); err == nil {
			if err := client.SignOut(ctx, session.AccessToken); err != nil {
				r.logger.Warn("remote sign-out failed", "error", err)
			}
		}
	}

	if err := services.ClearSession(path); err != nil {
		return err
	}
	r.session, r.catalog, r.backend = nil, nil, nil
	return r.writePlain("✓ Signed out\n")
}
