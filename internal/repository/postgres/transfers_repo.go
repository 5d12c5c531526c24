package postgres

import (
	"context"

	"github.com/baharkarakas/hodl-ledger/internal/models"
)

type transfersRepo struct{ db Executor }

const transferCols = `id, from_account, to_account, amount, ts, kind, status, reason, created_at`

func scanTransfer(row interface{ Scan(...any) error }) (models.Transfer, error) {
	var t models.Transfer
	err := row.Scan(&t.ID, &t.From, &t.To, &t.Amount, &t.Timestamp, &t.Kind, &t.Status, &t.Reason, &t.CreatedAt)
	return t, err
}

func (r *transfersRepo) Get(ctx context.Context, id string) (models.Transfer, error) {
	t, err := scanTransfer(r.db.QueryRow(ctx,
		`SELECT `+transferCols+`
		   FROM transfers
		  WHERE id=$1`,
		id,
	))
	return t, notFound(err, "transfer "+id)
}

// Save upserts by id; created_at is kept from the first write.
func (r *transfersRepo) Save(ctx context.Context, t models.Transfer) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO transfers(id, from_account, to_account, amount, ts, kind, status, reason)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE
		    SET kind = EXCLUDED.kind,
		        status = EXCLUDED.status,
		        reason = EXCLUDED.reason`,
		t.ID, t.From, t.To, t.Amount, t.Timestamp, t.Kind, t.Status, t.Reason,
	)
	return err
}

func (r *transfersRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transfer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transferCols+`
		   FROM transfers
		  WHERE from_account=$1 OR to_account=$1
		  ORDER BY ts DESC, created_at DESC
		  LIMIT $2 OFFSET $3`,
		accountID, limitOrAll(limit), offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transfersRepo) FailPending(ctx context.Context, reason string) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE transfers
		    SET status=$1, reason=$2
		  WHERE status=$3`,
		models.TransferFailed, reason, models.TransferPending,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
