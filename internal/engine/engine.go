package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"colonyserver/internal/config"
	"colonyserver/internal/domain"
	"colonyserver/internal/eventlog"
	"colonyserver/internal/repo"
	"colonyserver/internal/requestcache"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events eventlog.Writer
	Config *config.Config
	Cache  requestcache.Policy
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	e := Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: eventlog.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
	if cfg != nil {
		e.Cache = requestcache.Policy{TTL: cfg.Cache.TTL, MaxEntries: cfg.Cache.MaxEntries}
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// RequestContext attaches a fresh per-request lookup cache when the policy
// enables one. Each request gets its own cache; nothing is shared across
// requests, so staleness is bounded by request lifetime.
func (e Engine) RequestContext(ctx context.Context) context.Context {
	if !e.Cache.Enabled() {
		return ctx
	}
	return requestcache.WithContext(ctx, requestcache.New(e.Cache))
}

// MinimalUser is the placeholder profile served when an address has never
// registered. Lookups by address must always produce something renderable.
func MinimalUser(address string) domain.User {
	return domain.User{
		WalletAddress:   address,
		ColonyAddresses: []string{},
		TaskIDs:         []string{},
		TokenAddresses:  []string{},
	}
}

// UserOrMinimal resolves the user profile, degrading to a minimal one when
// the address is unknown. Any other lookup failure is surfaced as-is.
func (e Engine) UserOrMinimal(ctx context.Context, address string) (domain.User, error) {
	u, err := e.Repo.GetUserByAddress(ctx, address)
	if errors.Is(err, repo.ErrNotFound) {
		return MinimalUser(address), nil
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func dataIntegrity(err error) error {
	return fmt.Errorf("%w: %v", repo.ErrDataIntegrity, err)
}
