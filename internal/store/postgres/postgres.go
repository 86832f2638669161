// Package postgres implements store.Backend on a pgx pool. Each unit of work
// is one READ COMMITTED transaction; repositories are rebuilt on the tx so
// every write inside Run shares it.
package postgres

import (
	"context"
	"fmt"
	"time"

	activityrepo "crm_backend/internal/activities/repository"
	followuprepo "crm_backend/internal/followups/repository"
	leadrepo "crm_backend/internal/leads/repository"
	"crm_backend/internal/store"
	"crm_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres backend.
type Store struct {
	pool *pgxpool.Pool
	repos
	now func() time.Time
}

var _ store.Backend = (*Store)(nil)

// New creates a Store on pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		repos: newRepos(pool),
		now:   time.Now,
	}
}

// Run executes fn inside a transaction and commits when fn returns nil.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx store.Stores) error) (store.CommitResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return store.CommitResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tracker := store.Track(newRepos(tx))
	if err := fn(ctx, tracker); err != nil {
		return store.CommitResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return store.CommitResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return tracker.Result(s.now()), nil
}

// repos binds the three repositories to one connection.
type repos struct {
	leads      *leadrepo.Repository
	followUps  *followuprepo.Repository
	activities *activityrepo.Repository
}

func newRepos(conn db.DBTX) repos {
	return repos{
		leads:      leadrepo.New(conn),
		followUps:  followuprepo.New(conn),
		activities: activityrepo.New(conn),
	}
}

func (r repos) Leads() store.LeadStore          { return r.leads }
func (r repos) FollowUps() store.FollowUpStore  { return r.followUps }
func (r repos) Activities() store.ActivityStore { return r.activities }
