package devseed

// Package devseed populates a development database with a set of
// representative profiles, one per assignable role. Seeding is
// idempotent: profile writes replace existing rows keyed by id.

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/campushq/portal-api/internal/adapters/devidp"
	domainsession "github.com/campushq/portal-api/internal/domain/session"
	"github.com/campushq/portal-api/internal/ports"
)

// seedProfiles lists one representative profile per assignable role.
// IDs are derived the same way the mock identity provider derives
// principal ids, so a dev login against a matching seeded account
// resolves its profile.
var seedProfiles = []domainsession.Profile{
	{
		ID:          devidp.AccountID("student@campus.example"),
		Email:       "student@campus.example",
		DisplayName: "Sam Student",
		Role:        domainsession.RoleStudent,
	},
	{
		ID:          devidp.AccountID("lecturer@campus.example"),
		Email:       "lecturer@campus.example",
		DisplayName: "Lena Lecturer",
		Role:        domainsession.RoleLecturer,
	},
	{
		ID:          devidp.AccountID("admin@campus.example"),
		Email:       "admin@campus.example",
		DisplayName: "Avery Admin",
		Role:        domainsession.RoleAdmin,
	},
	{
		ID:          devidp.AccountID("finance@campus.example"),
		Email:       "finance@campus.example",
		DisplayName: "Finn Finance",
		Role:        domainsession.RoleFinance,
	},
}

// Run writes the development profiles through the given store.
func Run(ctx context.Context, store ports.ProfileStore, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range seedProfiles {
		g.Go(func() error {
			if err := store.Put(gctx, p); err != nil {
				return err
			}
			logger.InfoContext(gctx, "seeded profile", "id", p.ID, "role", p.Role)
			return nil
		})
	}
	return g.Wait()
}
