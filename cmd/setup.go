package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/lenavs/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadConfigOrCreate reads configPath, writing the example config there first when it does not exist.
func (r *Runner) loadConfigOrCreate(configPath string) *shared.Config {
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			return shared.DefaultConfig()
		}
		r.logger.Info("config file created", "path", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfigOrCreate(cmd.String("config"))

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back last migration")
		m, err := shared.RollbackMigration(db)
		if err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.writePlain("  - %s\n", m)
	} else {
		r.logger.Info("running database migrations")
		applied, err := shared.RunMigrations(db)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		for _, m := range applied {
			r.writePlain("  + %s\n", m)
		}
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", config.Database.Path, version)
}

// SetupConfig writes the example configuration and validates it.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil && !cmd.Bool("force") {
		r.logger.Info("config file exists, validating", "path", configPath)
	} else {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	r.writePlain("✓ Configuration OK: %s\n", configPath)
	r.writePlain("  API:       %s\n", config.API.BaseURL)
	r.writePlain("  Identity:  %s\n", config.Identity.URL)
	r.writePlain("  Database:  %s\n", config.Database.Path)
	r.writePlain("  Checkout:  %s (return on %s)\n", config.Checkout.Currency, config.Server.Addr())
	return nil
}
