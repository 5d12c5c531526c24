package feed

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/hodl-ledger/internal/api/validate"
	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/metrics"
	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/retry"
)

type Applier interface {
	Apply(ctx context.Context, t models.Transfer) (models.Transfer, error)
}

// Processor applies stream entries to the ledger. Rejections are final and
// the entry is acknowledged; store failures are retried and, when retries
// run out, leave the entry pending.
type Processor struct {
	svc   Applier
	retry retry.Config
	log   *slog.Logger
}

func NewProcessor(svc Applier, rc retry.Config, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{svc: svc, retry: rc, log: log}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	t, err := Decode(msg)
	if err != nil {
		metrics.FeedMessages.WithLabelValues("malformed").Inc()
		p.log.Warn("dropping malformed feed entry", "entry", msg.ID, "err", err)
		return nil
	}

	err = retry.WithBackoff(ctx, p.retry, p.log, "apply transfer "+t.ID, func() error {
		_, err := p.svc.Apply(ctx, t)
		if err != nil && rejected(err) {
			return retry.Permanent(err)
		}
		return err
	})
	switch {
	case err == nil:
		metrics.FeedMessages.WithLabelValues("applied").Inc()
		return nil
	case rejected(err):
		metrics.FeedMessages.WithLabelValues("rejected").Inc()
		p.log.Warn("feed entry rejected", "entry", msg.ID, "transfer", t.ID, "err", err)
		return nil
	default:
		metrics.FeedMessages.WithLabelValues("error").Inc()
		return err
	}
}

// rejected reports errors that no retry can cure: ledger rejections, invalid
// input, and Postgres data exceptions (class 22) or integrity constraint
// violations (class 23) such as a numeric overflow.
func rejected(err error) bool {
	var verrs validate.Errs
	if errors.Is(err, ledger.ErrInvariantViolation) || errors.As(err, &verrs) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}
