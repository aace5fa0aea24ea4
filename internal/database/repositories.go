package database

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Repositories bundles every repository over one connection or transaction
type Repositories struct {
	DB     *sqlx.DB // nil when bound to a transaction
	Users  *UserRepository
	Stacks *StackRepository
	Cards  *CardRepository
	States *ReviewStateRepository
	Tests  *StackTestRepository
	Stats  *StatisticsRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	r := bind(db)
	r.DB = db
	return r
}

func bind(ext sqlx.ExtContext) *Repositories {
	return &Repositories{
		Users:  NewUserRepository(ext),
		Stacks: NewStackRepository(ext),
		Cards:  NewCardRepository(ext),
		States: NewReviewStateRepository(ext),
		Tests:  NewStackTestRepository(ext),
		Stats:  NewStatisticsRepository(ext),
	}
}

// InTx runs fn with repositories bound to a single transaction
func (r *Repositories) InTx(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.DB == nil {
		return errors.New("repositories already bound to a transaction")
	}
	return InTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		return fn(bind(tx))
	})
}
