package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/metrics"
	"github.com/baharkarakas/hodl-ledger/internal/models"
	repo "github.com/baharkarakas/hodl-ledger/internal/repository"
)

// ScoreService is the read side: account state, checkpoint chains and the
// metric/ratio queries.
type ScoreService struct {
	repos  repo.Repositories
	engine *ledger.Engine
	p      ledger.Params
}

func NewScoreService(store repo.Store, p ledger.Params) *ScoreService {
	r := store.Repositories()
	return &ScoreService{repos: r, engine: ledger.NewEngine(r, p), p: p}
}

func (s *ScoreService) Params() ledger.Params { return s.p }

func (s *ScoreService) Account(ctx context.Context, id string) (models.Account, error) {
	return s.repos.Accounts.Get(ctx, strings.TrimSpace(id))
}

func (s *ScoreService) Accounts(ctx context.Context, limit, offset int) ([]models.Account, error) {
	return s.repos.Accounts.List(ctx, limit, offset)
}

func (s *ScoreService) Checkpoints(ctx context.Context, id string, limit, offset int) ([]models.Checkpoint, error) {
	return s.repos.Checkpoints.ListByAccount(ctx, strings.TrimSpace(id), limit, offset)
}

func (s *ScoreService) MetricAt(ctx context.Context, id string, ts int64) (decimal.Decimal, error) {
	v, err := s.engine.MetricAt(ctx, strings.TrimSpace(id), ts)
	observe("metric", err)
	return v, err
}

// Ratio divides the account's metric growth over [start, end] by that of
// against, or of the aggregate account when against is empty.
func (s *ScoreService) Ratio(ctx context.Context, id, against string, start, end int64) (decimal.Decimal, error) {
	against = strings.TrimSpace(against)
	var (
		v   decimal.Decimal
		err error
	)
	if against == "" || against == s.p.Sentinel {
		v, err = s.engine.Ratio(ctx, strings.TrimSpace(id), start, end)
	} else {
		v, err = s.engine.RatioBetween(ctx, strings.TrimSpace(id), against, start, end)
	}
	observe("ratio", err)
	return v, err
}

func observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case ledger.IsQueryError(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	metrics.QueriesTotal.WithLabelValues(op, outcome).Inc()
}
