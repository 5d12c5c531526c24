package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/baharkarakas/hodl-ledger/internal/api/validate"
	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/metrics"
	"github.com/baharkarakas/hodl-ledger/internal/models"
	repo "github.com/baharkarakas/hodl-ledger/internal/repository"
	"github.com/baharkarakas/hodl-ledger/internal/worker"
)

// TransferService is the only path into the ledger updater. Every transfer
// is applied in its own store transaction and recorded by id, so a
// redelivered event is a no-op.
type TransferService struct {
	store   repo.Store
	updater *ledger.Updater
	wp      *worker.Pool
	log     *slog.Logger
}

func NewTransferService(store repo.Store, updater *ledger.Updater, wp *worker.Pool, log *slog.Logger) *TransferService {
	if log == nil {
		log = slog.Default()
	}
	return &TransferService{store: store, updater: updater, wp: wp, log: log}
}

// ----------------- Helpers -----------------

func (s *TransferService) normalize(t models.Transfer) (models.Transfer, error) {
	t.ID = strings.TrimSpace(t.ID)
	t.From = strings.TrimSpace(t.From)
	t.To = strings.TrimSpace(t.To)

	var errs validate.Errs
	errs.Add(validate.Required("from", t.From))
	errs.Add(validate.Required("to", t.To))
	errs.Add(validate.Quantity("amount", t.Amount))
	errs.Add(validate.MinInt("timestamp", t.Timestamp, 0))
	if len(errs) > 0 {
		metrics.TransfersFailed.WithLabelValues("invalid").Inc()
		return t, errs
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Kind = s.updater.Kind(t)
	return t, nil
}

func (s *TransferService) recordFailure(ctx context.Context, t models.Transfer, err error) {
	reason := "store"
	if errors.Is(err, ledger.ErrInvariantViolation) {
		reason = "invariant"
	}
	metrics.TransfersFailed.WithLabelValues(reason).Inc()
	s.log.Warn("transfer rejected",
		"id", t.ID, "from", t.From, "to", t.To, "amount", t.Amount.String(), "ts", t.Timestamp, "err", err)

	t.Status = models.TransferFailed
	t.Reason = err.Error()
	if serr := s.store.Repositories().Transfers.Save(ctx, t); serr != nil {
		s.log.Error("record failed transfer", "id", t.ID, "err", serr)
	}
}

// ----------------- APPLY -----------------

// Apply folds t into the ledger synchronously. Callers must deliver
// transfers in timestamp order.
func (s *TransferService) Apply(ctx context.Context, t models.Transfer) (models.Transfer, error) {
	t, err := s.normalize(t)
	if err != nil {
		return t, err
	}
	return s.apply(ctx, t)
}

func (s *TransferService) apply(ctx context.Context, t models.Transfer) (models.Transfer, error) {
	var (
		dup bool
		out ledger.Outcome
	)
	err := s.store.WithTx(ctx, func(r repo.Repositories) error {
		prev, err := r.Transfers.Get(ctx, t.ID)
		switch {
		case err == nil && prev.Status == models.TransferApplied:
			dup = true
			t = prev
			return nil
		case err != nil && !errors.Is(err, repo.ErrNotFound):
			return err
		}

		out, err = s.updater.ApplyTransfer(ctx, r, t)
		if err != nil {
			return err
		}
		t.Status = models.TransferApplied
		t.Reason = ""
		return r.Transfers.Save(ctx, t)
	})
	if err != nil {
		s.recordFailure(ctx, t, err)
		return t, err
	}
	if dup {
		metrics.TransfersDuplicate.Inc()
		s.log.Debug("transfer already applied", "id", t.ID)
		return t, nil
	}

	metrics.TransfersApplied.WithLabelValues(string(out.Kind)).Inc()
	metrics.CheckpointsCreated.Add(float64(out.CheckpointsCreated))
	metrics.LastEventTimestamp.Set(float64(t.Timestamp))
	s.log.Debug("transfer applied",
		"id", t.ID, "kind", out.Kind, "noop", out.Noop, "checkpoints_created", out.CheckpointsCreated)
	return t, nil
}

// ----------------- SUBMIT -----------------

// Submit records t as pending and queues it for the single writer. A
// transfer id that is pending or applied is returned as stored and not
// queued again; a failed one is queued for another attempt.
func (s *TransferService) Submit(ctx context.Context, t models.Transfer) (models.Transfer, error) {
	t, err := s.normalize(t)
	if err != nil {
		return t, err
	}

	repos := s.store.Repositories()
	prev, err := repos.Transfers.Get(ctx, t.ID)
	switch {
	case err == nil && prev.Status != models.TransferFailed:
		return prev, nil
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		return t, err
	}

	t.Status = models.TransferPending
	if err := repos.Transfers.Save(ctx, t); err != nil {
		return t, err
	}
	queued := s.wp != nil && s.wp.Submit(func() {
		// detached from the request; the HTTP caller is already answered
		_, _ = s.apply(context.Background(), t)
	})
	if !queued {
		s.recordFailure(ctx, t, ErrShuttingDown)
		return t, ErrShuttingDown
	}
	return t, nil
}

// LostBeforeApply is the failure reason RecoverPending records.
const LostBeforeApply = "lost before apply"

// RecoverPending fails transfers left pending by a previous process, whose
// queue died with it. Call it before accepting new submissions.
func (s *TransferService) RecoverPending(ctx context.Context) (int, error) {
	n, err := s.store.Repositories().Transfers.FailPending(ctx, LostBeforeApply)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.TransfersFailed.WithLabelValues("lost").Add(float64(n))
		s.log.Warn("pending transfers from a previous run marked failed", "count", n)
	}
	return n, nil
}

// ----------------- Queries -----------------

func (s *TransferService) Get(ctx context.Context, id string) (models.Transfer, error) {
	return s.store.Repositories().Transfers.Get(ctx, id)
}

func (s *TransferService) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transfer, error) {
	return s.store.Repositories().Transfers.ListByAccount(ctx, accountID, limit, offset)
}
