package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadOrCreateConfig loads the config at path, writing the embedded template first when it is missing.
func (r *Runner) loadOrCreateConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			return shared.DefaultConfig()
		}
		r.logger.Info("config file created", "path", path)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// SetupDatabase initializes the draft database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	config := r.loadOrCreateConfig(configPath)

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migration state: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("✓ Database ready: %s (migrations applied: %v)\n", config.Database.Path, versions)
}

// SetupBackend configures the backend URL and anon key from a request copied out of the browser's DevTools.
func (r *Runner) SetupBackend(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	configPath := cmd.String("config")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	r.logger.Info("parsing cURL command for backend settings")

	var req *shared.CurlRequest
	var err error

	if curlFile != "" {
		req, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		req, err = shared.ParseCurlCommand(curlCmd)
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	backend, err := req.Backend()
	if err != nil {
		return err
	}

	config := r.loadOrCreateConfig(configPath)
	config.Backend.URL = backend.URL
	config.Backend.AnonKey = backend.AnonKey

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.config.Backend.URL = backend.URL
	r.config.Backend.AnonKey = backend.AnonKey
	r.client = nil

	r.logger.Info("backend configured", "url", backend.URL)

	r.writePlain("✓ Backend configured: %s\n", backend.URL)
	r.writePlain("Config saved to: %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'encore auth login --email you@example.com' to sign in\n")
	r.writePlain("2. Run 'encore draft new --title \"My Album\"' to start an album\n")

	return nil
}
