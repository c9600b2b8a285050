package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// api returns a raw request client, signed in as the current user when a session exists.
func (r *Runner) api() *services.APIService {
	a := services.NewAPIService(r.config.Backend.URL, r.config.Backend.AnonKey, r.httpClient)
	session, err := r.currentSession()
	if err != nil {
		r.logger.Debug("sending requests with the anon key", "reason", err)
		return a
	}
	path, err := r.sessionPath()
	if err != nil {
		return a
	}
	client, err := r.backendClient()
	if err != nil {
		return a.WithBearer(session.AccessToken)
	}

	_, ts := services.NewSessionSource(client, session, func(s *services.Session) error {
		r.session = s
		return services.SaveSession(path, s)
	})
	tok, err := ts.Token()
	if err != nil {
		r.logger.Warn("session refresh failed; using stored token", "error", err)
		return a.WithBearer(session.AccessToken)
	}
	return a.WithBearer(tok.AccessToken)
}

func (r *Runner) printResponse(resp *services.APIResponse, pretty bool) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

func pathArg(cmd *cli.Command) (string, error) {
	path := cmd.StringArg("path")
	if path == "" {
		return "", fmt.Errorf("%w: path is required, e.g. /rest/v1/albums?select=*", shared.ErrMissingArgument)
	}
	return path, nil
}

func dataFlag(cmd *cli.Command) ([]byte, error) {
	data := []byte(cmd.String("data"))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}
	if err := shared.ValidateJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}

// APIGet makes a direct GET request to the backend and prints the body.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := pathArg(cmd)
	if err != nil {
		return err
	}
	r.logger.Info("GET request", "path", path)

	resp, err := r.api().Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.printResponse(resp, !cmd.Bool("compact"))
}

// APIPost makes a direct POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := pathArg(cmd)
	if err != nil {
		return err
	}
	data, err := dataFlag(cmd)
	if err != nil {
		return err
	}
	r.logger.Info("POST request", "path", path)

	resp, err := r.api().Post(ctx, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.printResponse(resp, true)
}

// APIPatch makes a direct PATCH request with a JSON body.
func (r *Runner) APIPatch(ctx context.Context, cmd *cli.Command) error {
	path, err := pathArg(cmd)
	if err != nil {
		return err
	}
	data, err := dataFlag(cmd)
	if err != nil {
		return err
	}
	r.logger.Info("PATCH request", "path", path)

	resp, err := r.api().Patch(ctx, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.printResponse(resp, true)
}

// APIDelete makes a direct DELETE request.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	path, err := pathArg(cmd)
	if err != nil {
		return err
	}
	r.logger.Info("DELETE request", "path", path)

	resp, err := r.api().Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.printResponse(resp, true)
}

// APIDump fetches the signed-in artist's albums, songs and tags along with the platform constants.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.userID()
	if err != nil {
		return err
	}
	api := r.api()

	type dumpError struct {
		Endpoint string `json:"endpoint"`
		Error    string `json:"error"`
	}
	dump := struct {
		Constants any         `json:"platform_constants,omitempty"`
		Artist    any         `json:"artist,omitempty"`
		Albums    any         `json:"albums,omitempty"`
		Songs     any         `json:"songs,omitempty"`
		Tags      any         `json:"tags,omitempty"`
		Errors    []dumpError `json:"errors,omitempty"`
	}{}

	endpoints := []struct {
		label string
		path  string
		dest  *any
	}{
		{"platform constants", "/rest/v1/platform_constants?select=*", &dump.Constants},
		{"artist", "/rest/v1/artists?select=*&id=eq." + userID, &dump.Artist},
		{"albums", "/rest/v1/albums?select=*&artist_id=eq." + userID, &dump.Albums},
		{"songs", "/rest/v1/songs?select=*&artist_id=eq." + userID + "&order=position", &dump.Songs},
		{"tags", "/rest/v1/tags?select=*&order=category,name", &dump.Tags},
	}

	r.writePlain("Fetching backend state...\n\n")
	for _, ep := range endpoints {
		r.writePlain("  %s...\n", ep.label)
		resp, err := api.Get(ctx, ep.path)
		switch {
		case err != nil:
			dump.Errors = append(dump.Errors, dumpError{ep.path, err.Error()})
			r.logger.Warn("dump request failed", "endpoint", ep.path, "error", err)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			dump.Errors = append(dump.Errors, dumpError{ep.path, fmt.Sprintf("status %d", resp.StatusCode)})
			r.logger.Warn("dump request failed", "endpoint", ep.path, "status", resp.StatusCode)
		default:
			*ep.dest = resp.JSONData
		}
	}
	r.writePlain("\n✓ Dump complete\n\n")

	if save := cmd.String("save"); save != "" {
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(save, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", save)
			r.writePlain("✓ Dump saved to %s\n\n", save)
		}
	}

	return r.writeJSON(dump, cmd.Bool("pretty"))
}
