package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/campushq/portal-api/config"
	"github.com/campushq/portal-api/internal/adapters/devidp"
	"github.com/campushq/portal-api/internal/adapters/pgprofile"
	"github.com/campushq/portal-api/internal/adapters/rediscache"
	"github.com/campushq/portal-api/internal/bootstrap"
	"github.com/campushq/portal-api/internal/devseed"
	domainsession "github.com/campushq/portal-api/internal/domain/session"
	"github.com/campushq/portal-api/internal/ports"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"seed": {
			name:        "seed",
			description: "Run migrations and seed development profiles",
			run:         runSeed,
		},
		"provision": {
			name:        "provision",
			description: "Create the profile for a principal that has none",
			run:         runProvision,
		},
		"show-profile": {
			name:        "show-profile",
			description: "Print the stored profile for a principal id",
			run:         runShowProfile,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: portal-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func connectDB(cmdCtx *commandContext) (*sql.DB, error) {
	return bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
}

func closeDB(cmdCtx *commandContext, db *sql.DB) {
	if err := db.Close(); err != nil {
		cmdCtx.Logger.ErrorContext(cmdCtx.Ctx, "close database failed", "error", err)
	}
}

// profileStore builds the same store stack the service uses: Postgres,
// wrapped by the Redis cache when Redis is reachable. Writes made here
// are then immediately visible to a running portal process.
//
//nolint:ireturn // command implementations depend on the ProfileStore port.
func profileStore(cmdCtx *commandContext, db *sql.DB) (ports.ProfileStore, func()) {
	store := pgprofile.NewStore(db)

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		cmdCtx.Logger.WarnContext(cmdCtx.Ctx, "redis unavailable, writing without cache refresh", "error", err)
		return store, func() {}
	}

	cached, err := rediscache.NewProfileCache(rediscache.ProfileCacheOptions{
		Next:   store,
		Client: redisClient,
		Prefix: cmdCtx.Config.Cache.KeyPrefix,
		TTL:    cmdCtx.Config.Cache.ProfileTTL,
	})
	cleanup := func() {
		if cerr := redisClient.Close(); cerr != nil {
			cmdCtx.Logger.ErrorContext(cmdCtx.Ctx, "close redis failed", "error", cerr)
		}
	}
	if err != nil {
		cmdCtx.Logger.WarnContext(cmdCtx.Ctx, "profile cache unavailable", "error", err)
		return store, cleanup
	}
	return cached, cleanup
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runSeed(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	if err = bootstrap.RunMigrations(cmdCtx.Ctx, db, cmdCtx.Logger); err != nil {
		return err
	}

	store, cleanup := profileStore(cmdCtx, db)
	defer cleanup()

	return devseed.Run(cmdCtx.Ctx, store, cmdCtx.Logger)
}

// runProvision repairs a dangling principal: an identity-provider
// account that exists without a matching profile row, typically left
// behind by a failed registration step.
func runProvision(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	id := fs.String("id", "", "principal id (required unless -dev-email is given)")
	devEmail := fs.String("dev-email", "", "derive the principal id from a mock-mode account email")
	email := fs.String("email", "", "profile email (required)")
	name := fs.String("name", "", "display name")
	role := fs.String("role", string(domainsession.RoleStudent), "profile role")
	if err := fs.Parse(args); err != nil {
		return err
	}

	principalID := *id
	if principalID == "" && *devEmail != "" {
		principalID = devidp.AccountID(*devEmail)
	}
	if principalID == "" {
		return errors.New("either -id or -dev-email is required")
	}
	if *email == "" {
		return errors.New("-email is required")
	}
	parsedRole := domainsession.ParseRole(*role)
	if !parsedRole.Assignable() {
		return fmt.Errorf("role %q is not assignable", *role)
	}

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	store, cleanup := profileStore(cmdCtx, db)
	defer cleanup()

	if _, getErr := store.Get(cmdCtx.Ctx, principalID); getErr == nil {
		return fmt.Errorf("principal %s already has a profile", principalID)
	}

	now := time.Now().UTC()
	if err = store.Put(cmdCtx.Ctx, domainsession.Profile{
		ID:          principalID,
		Email:       *email,
		DisplayName: *name,
		Role:        parsedRole,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}

	cmdCtx.Logger.InfoContext(cmdCtx.Ctx, "profile provisioned",
		"id", principalID, "email", *email, "role", parsedRole)
	return nil
}

func runShowProfile(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("show-profile", flag.ContinueOnError)
	id := fs.String("id", "", "principal id (required unless -dev-email is given)")
	devEmail := fs.String("dev-email", "", "derive the principal id from a mock-mode account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	principalID := *id
	if principalID == "" && *devEmail != "" {
		principalID = devidp.AccountID(*devEmail)
	}
	if principalID == "" {
		return errors.New("either -id or -dev-email is required")
	}

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	profile, err := pgprofile.NewStore(db).Get(cmdCtx.Ctx, principalID)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	return writef(os.Stdout, "%s\n", out)
}
