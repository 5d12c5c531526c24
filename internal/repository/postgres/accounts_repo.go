package postgres

import (
	"context"

	"github.com/baharkarakas/hodl-ledger/internal/models"
)

type accountsRepo struct{ db Executor }

const accountCols = `id, balance, checkpoint_count, last_checkpoint_bucket, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Balance, &a.CheckpointCount, &a.LastCheckpointBucket, &a.UpdatedAt)
	return a, err
}

func (r *accountsRepo) Get(ctx context.Context, id string) (models.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountCols+`
		   FROM accounts
		  WHERE id=$1`,
		id,
	))
	return a, notFound(err, "account "+id)
}

func (r *accountsRepo) Upsert(ctx context.Context, a models.Account) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO accounts(id, balance, checkpoint_count, last_checkpoint_bucket, updated_at)
		 VALUES($1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE
		    SET balance = EXCLUDED.balance,
		        checkpoint_count = EXCLUDED.checkpoint_count,
		        last_checkpoint_bucket = EXCLUDED.last_checkpoint_bucket,
		        updated_at = now()`,
		a.ID, a.Balance, a.CheckpointCount, a.LastCheckpointBucket,
	)
	return err
}

func (r *accountsRepo) List(ctx context.Context, limit, offset int) ([]models.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountCols+`
		   FROM accounts
		  ORDER BY balance DESC, id
		  LIMIT $1 OFFSET $2`,
		limitOrAll(limit), offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// limitOrAll maps a non-positive limit to NULL, which Postgres reads as
// LIMIT ALL.
func limitOrAll(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
