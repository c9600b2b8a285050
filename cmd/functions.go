package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

func songArg(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("song")
	if id == "" {
		return "", fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}
	return id, nil
}

// FnWallet creates the signed-in user's payout wallet.
func (r *Runner) FnWallet(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.userID()
	if err != nil {
		return err
	}
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	res, err := catalog.CreateWallet(ctx, userID)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}
	return r.writePlain("✓ Wallet %s created (address %s)\n", res.WalletID, res.Address)
}

// FnPayout starts the payout of a song whose stream threshold has been met.
func (r *Runner) FnPayout(ctx context.Context, cmd *cli.Command) error {
	songID, err := songArg(cmd)
	if err != nil {
		return err
	}
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	res, err := catalog.InitiatePayout(ctx, songID)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}
	return r.writePlain("✓ Payout %s: %.2f to %d recipients\n", res.Status, res.Amount, res.Recipients)
}

// FnPlay records a stream of a song by the signed-in listener.
func (r *Runner) FnPlay(ctx context.Context, cmd *cli.Command) error {
	songID, err := songArg(cmd)
	if err != nil {
		return err
	}
	userID, err := r.userID()
	if err != nil {
		return err
	}
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	res, err := catalog.RecordPlay(ctx, userID, songID)
	if err != nil {
		return err
	}

	r.writePlain("✓ Stream recorded (%s total)\n", shared.FormatCount(res.Streams))
	if res.ThresholdMet {
		r.writePlain("Threshold reached")
		if res.PayoutTriggered {
			r.writePlain(", payout triggered")
		}
		r.writePlain("\n")
	}
	return nil
}

// FnTokens buys listener tokens.
func (r *Runner) FnTokens(ctx context.Context, cmd *cli.Command) error {
	amount := cmd.Int("amount")
	if amount <= 0 {
		return fmt.Errorf("%w: --amount must be positive", shared.ErrInvalidArgument)
	}
	userID, err := r.userID()
	if err != nil {
		return err
	}
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	res, err := catalog.PurchaseTokens(ctx, userID, amount)
	if err != nil {
		return err
	}

	r.writePlain("✓ %s tokens purchased\n", shared.FormatCount(res.Tokens))
	if res.CheckoutURL != "" {
		r.writePlain("Complete payment at: %s\n", res.CheckoutURL)
		if cmd.Bool("open") {
			if err := shared.OpenBrowser(res.CheckoutURL); err != nil {
				r.logger.Warn("could not open browser", "error", err)
			}
		}
	}
	return nil
}

// FnDeleteAccount deletes the signed-in user and their local session.
func (r *Runner) FnDeleteAccount(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: deleting your account cannot be undone; pass --yes to confirm", shared.ErrInvalidArgument)
	}
	userID, err := r.userID()
	if err != nil {
		return err
	}
	catalog, err := r.userCatalog()
	if err != nil {
		return err
	}
	if err := catalog.DeleteUser(ctx, userID); err != nil {
		return err
	}

	path, err := r.sessionPath()
	if err != nil {
		return err
	}
	if err := services.ClearSession(path); err != nil {
		r.logger.Warn("account deleted but local session remains", "path", path, "error", err)
	}
	r.session, r.catalog, r.backend = nil, nil, nil
	return r.writePlain("✓ Account %s deleted\n", userID)
}
