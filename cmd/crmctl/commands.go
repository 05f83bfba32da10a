package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	authrepo "leadflow_backend/internal/auth/repository"
	authservice "leadflow_backend/internal/auth/service"
	"leadflow_backend/internal/categories"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/imports"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/migrations"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

type runtime struct {
	cfg  *config.Config
	log  *logger.Logger
	pool *pgxpool.Pool
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &runtime{cfg: cfg, log: logger.New(cfg.Env), pool: pool}, nil
}

func (r *runtime) Close() {
	r.pool.Close()
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Subcommands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: runMigrateUp,
			},
			{
				Name:   "status",
				Usage:  "Print the state of every migration",
				Action: runMigrateStatus,
			},
		},
	}
}

func runMigrateUp(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := db.RunMigrations(c.Context, cfg, migrations.FS); err != nil {
		return err
	}
	fmt.Println("Migrations applied")
	return nil
}

func runMigrateStatus(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return db.MigrationStatus(c.Context, cfg, migrations.FS)
}

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-user",
		Usage: "Create a manager or worker account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
			&cli.StringFlag{Name: "email", Usage: "Sign-in email", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Initial password (min 8 characters)", EnvVars: []string{"CRMCTL_PASSWORD"}, Required: true},
			&cli.StringFlag{Name: "role", Usage: "manager or worker", Value: string(actor.RoleWorker)},
		},
		Action: runCreateUser,
	}
}

func runCreateUser(c *cli.Context) error {
	rt, err := openRuntime(c.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	role, ok := actor.ParseRole(strings.ToLower(c.String("role")))
	if !ok {
		return fmt.Errorf("invalid role %q", c.String("role"))
	}

	svc := authservice.New(authrepo.New(rt.pool), rt.cfg, email.NoopSender{}, rt.log)
	profile, err := svc.CreateUser(c.Context, authservice.CreateUserInput{
		Name:     c.String("name"),
		Email:    c.String("email"),
		Password: c.String("password"),
		Role:     role,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created %s %s (%s)\n", profile.Role, profile.Email, profile.ID)
	return nil
}

func importLeadsCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-leads",
		Usage:     "Import leads from an .xlsx or .csv file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "as", Usage: "Email of the user performing the import", Required: true},
			&cli.StringFlag{Name: "assign-to", Usage: "Worker ID to assign every imported lead to"},
			&cli.StringFlag{Name: "category", Usage: "Category ID for every imported lead"},
		},
		Action: runImportLeads,
	}
}

func runImportLeads(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing FILE argument")
	}

	opts, err := importOptions(c.String("assign-to"), c.String("category"))
	if err != nil {
		return err
	}

	rt, err := openRuntime(c.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	users := authrepo.New(rt.pool)
	user, err := users.GetUserByEmail(c.Context, c.String("as"))
	if err != nil {
		return fmt.Errorf("resolve --as user: %w", err)
	}
	role, ok := actor.ParseRole(user.Role)
	if !ok {
		return fmt.Errorf("user %s has unknown role %q", user.Email, user.Role)
	}
	by := actor.New(user.ID, role)

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	// Imports from the CLI notify like API imports do.
	bus := events.NewInMemoryBus(rt.log)
	defer bus.Wait()
	authSvc := authservice.New(users, rt.cfg, email.NoopSender{}, rt.log)
	notification.New(rt.pool, authSvc, rt.log).RegisterHandlers(bus)
	categoriesModule := categories.NewModule(rt.pool, validator.New(), rt.log)

	svc := imports.New(leadrepo.New(rt.pool), categoriesModule.Service(), authSvc, bus, imports.Config{
		PhoneRegion: rt.cfg.GetDefaultPhoneRegion(),
		MaxRows:     rt.cfg.GetImportMaxRows(),
	}, rt.log)

	result, err := svc.Import(c.Context, by, filepath.Base(path), file, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d rows: %d imported, %d failed\n", result.TotalProcessed, result.Successful, result.Failed)
	for _, rowErr := range result.Errors {
		fmt.Printf("  row %d (%s <%s>): %s\n", rowErr.Row, rowErr.Name, rowErr.Email, rowErr.Error)
	}
	return nil
}

func importOptions(assignTo, category string) (transport.ImportOptions, error) {
	var opts transport.ImportOptions
	if assignTo != "" {
		id, err := uuid.Parse(assignTo)
		if err != nil {
			return opts, fmt.Errorf("invalid --assign-to: %w", err)
		}
		opts.AssignedTo = &id
	}
	if category != "" {
		id, err := uuid.Parse(category)
		if err != nil {
			return opts, fmt.Errorf("invalid --category: %w", err)
		}
		opts.CategoryID = &id
	}
	return opts, nil
}
