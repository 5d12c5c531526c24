package postgres

import (
	"context"
	"fmt"

	"github.com/baharkarakas/hodl-ledger/internal/models"
)

type checkpointsRepo struct{ db Executor }

const checkpointCols = `account_id, bucket, last_event_timestamp, last_balance, cumulative_metric, prev_bucket, next_bucket`

func scanCheckpoint(row interface{ Scan(...any) error }) (models.Checkpoint, error) {
	var c models.Checkpoint
	err := row.Scan(&c.AccountID, &c.Bucket, &c.LastEventTimestamp, &c.LastBalance, &c.CumulativeMetric, &c.PrevBucket, &c.NextBucket)
	return c, err
}

func (r *checkpointsRepo) Get(ctx context.Context, accountID string, bucket int64) (models.Checkpoint, error) {
	c, err := scanCheckpoint(r.db.QueryRow(ctx,
		`SELECT `+checkpointCols+`
		   FROM checkpoints
		  WHERE account_id=$1 AND bucket=$2`,
		accountID, bucket,
	))
	return c, notFound(err, fmt.Sprintf("checkpoint %s@%d", accountID, bucket))
}

func (r *checkpointsRepo) Upsert(ctx context.Context, c models.Checkpoint) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO checkpoints(`+checkpointCols+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (account_id, bucket) DO UPDATE
		    SET last_event_timestamp = EXCLUDED.last_event_timestamp,
		        last_balance = EXCLUDED.last_balance,
		        cumulative_metric = EXCLUDED.cumulative_metric,
		        prev_bucket = EXCLUDED.prev_bucket,
		        next_bucket = EXCLUDED.next_bucket`,
		c.AccountID, c.Bucket, c.LastEventTimestamp, c.LastBalance, c.CumulativeMetric, c.PrevBucket, c.NextBucket,
	)
	return err
}

// Floor rides the (account_id, bucket) primary key backwards.
func (r *checkpointsRepo) Floor(ctx context.Context, accountID string, ts int64) (models.Checkpoint, error) {
	c, err := scanCheckpoint(r.db.QueryRow(ctx,
		`SELECT `+checkpointCols+`
		   FROM checkpoints
		  WHERE account_id=$1 AND bucket <= $2
		  ORDER BY bucket DESC
		  LIMIT 1`,
		accountID, ts,
	))
	return c, notFound(err, fmt.Sprintf("checkpoint %s at or before %d", accountID, ts))
}

func (r *checkpointsRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Checkpoint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+checkpointCols+`
		   FROM checkpoints
		  WHERE account_id=$1
		  ORDER BY bucket
		  LIMIT $2 OFFSET $3`,
		accountID, limitOrAll(limit), offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Checkpoint
	for rows.Next() {
		c, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
