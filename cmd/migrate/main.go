package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"free-shipping-bar/internal/config"
	"free-shipping-bar/internal/infrastructure/database"
	"free-shipping-bar/internal/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func main() {
	log := logger.New(logger.Options{ServiceName: "migrate", Format: "console"})
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(log).Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func newApp(log zerolog.Logger) *cli.Command {
	dbFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "driver",
			Usage:   "database driver (postgres, mysql, sqlite)",
			Value:   "postgres",
			Sources: cli.EnvVars("DB_DRIVER"),
		},
		&cli.StringFlag{
			Name:     "dsn",
			Usage:    "database connection string",
			Sources:  cli.EnvVars("DATABASE_URL"),
			Required: true,
		},
	}

	gooseCommand := func(name, usage string) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			Flags:     dbFlags,
			ArgsUsage: "[version]",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return runGoose(ctx, cmd, log, name, cmd.Args().Slice()...)
			},
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the free shipping bar database schema",
		Commands: []*cli.Command{
			gooseCommand("up", "apply all pending migrations"),
			gooseCommand("up-to", "apply migrations up to a version"),
			gooseCommand("down", "roll back the latest migration"),
			gooseCommand("down-to", "roll back to a version"),
			gooseCommand("redo", "roll back and reapply the latest migration"),
			gooseCommand("reset", "roll back every migration"),
			gooseCommand("status", "print the migration status"),
			gooseCommand("version", "print the current schema version"),
			{
				Name:      "create",
				Usage:     "write a new SQL migration skeleton",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "directory receiving the new file",
						Value: "internal/infrastructure/database/migrations",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("usage: migrate create <name>")
					}
					if err := database.Create(cmd.String("dir"), name); err != nil {
						return err
					}
					log.Info().Str("name", name).Str("dir", cmd.String("dir")).Msg("Migration created")
					return nil
				},
			},
		},
	}
}

func runGoose(ctx context.Context, cmd *cli.Command, log zerolog.Logger, command string, args ...string) error {
	dbCfg := config.DBConfig{
		Driver:       cmd.String("driver"),
		DSN:          cmd.String("dsn"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	client, err := database.Open(ctx, dbCfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info().Str("command", command).Str("driver", client.Driver()).Msg("Running migrations")
	if err := client.Migrate(ctx, command, args...); err != nil {
		return err
	}
	log.Info().Str("command", command).Msg("Done")
	return nil
}
