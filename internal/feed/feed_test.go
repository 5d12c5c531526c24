package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/hodl-ledger/internal/api/validate"
	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/retry"
)

func entry(id string, kv ...string) redis.XMessage {
	vals := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		vals[kv[i]] = kv[i+1]
	}
	return redis.XMessage{ID: id, Values: vals}
}

func TestDecode(t *testing.T) {
	tr, err := Decode(entry("1-0", "id", "tx1", "from", "0xa", "to", "0xb", "amount", "1000000000000000000000", "timestamp", "3600"))
	require.NoError(t, err)
	assert.Equal(t, "tx1", tr.ID)
	assert.Equal(t, "0xa", tr.From)
	assert.Equal(t, "0xb", tr.To)
	assert.Equal(t, "1000000000000000000000", tr.Amount.String())
	assert.Equal(t, int64(3600), tr.Timestamp)

	tr, err = Decode(entry("2-0", "from", "0xa", "to", "0xb", "amount", "1", "timestamp", "0"))
	require.NoError(t, err)
	assert.Equal(t, "2-0", tr.ID)
}

func TestDecode_OversizedAmountFailsValidation(t *testing.T) {
	tr, err := Decode(entry("1-0", "from", "0xa", "to", "0xb", "amount", "1e80", "timestamp", "0"))
	require.NoError(t, err)
	assert.NotNil(t, validate.Quantity("amount", tr.Amount))
}

func TestDecode_Malformed(t *testing.T) {
	for name, msg := range map[string]redis.XMessage{
		"missing to":    entry("1-0", "from", "0xa", "amount", "1", "timestamp", "0"),
		"bad amount":    entry("1-0", "from", "0xa", "to", "0xb", "amount", "lots", "timestamp", "0"),
		"bad timestamp": entry("1-0", "from", "0xa", "to", "0xb", "amount", "1", "timestamp", "noon"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(msg)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

type fakeApplier struct {
	mu    sync.Mutex
	errs  []error
	calls []models.Transfer
}

func (f *fakeApplier) Apply(_ context.Context, t models.Transfer) (models.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, t)
	if len(f.errs) == 0 {
		return t, nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return t, err
}

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestProcessor_Outcomes(t *testing.T) {
	ok := entry("1-0", "from", "0xa", "to", "0xb", "amount", "1", "timestamp", "0")

	t.Run("retries transient errors", func(t *testing.T) {
		app := &fakeApplier{errs: []error{errors.New("conn reset")}}
		require.NoError(t, NewProcessor(app, fastRetry(), nil).Handle(context.Background(), ok))
		assert.Len(t, app.calls, 2)
	})

	t.Run("ledger rejection is final", func(t *testing.T) {
		app := &fakeApplier{errs: []error{ledger.ErrInvariantViolation}}
		require.NoError(t, NewProcessor(app, fastRetry(), nil).Handle(context.Background(), ok))
		assert.Len(t, app.calls, 1)
	})

	t.Run("validation rejection is final", func(t *testing.T) {
		app := &fakeApplier{errs: []error{validate.Errs{{Field: "amount", Msg: "must be >= 0"}}}}
		require.NoError(t, NewProcessor(app, fastRetry(), nil).Handle(context.Background(), ok))
		assert.Len(t, app.calls, 1)
	})

	t.Run("postgres data exception is final", func(t *testing.T) {
		overflow := fmt.Errorf("save account: %w", &pgconn.PgError{Code: "22003", Message: "numeric field overflow"})
		app := &fakeApplier{errs: []error{overflow}}
		require.NoError(t, NewProcessor(app, fastRetry(), nil).Handle(context.Background(), ok))
		assert.Len(t, app.calls, 1)
	})

	t.Run("serialization failure is retried", func(t *testing.T) {
		app := &fakeApplier{errs: []error{&pgconn.PgError{Code: "40001"}}}
		require.NoError(t, NewProcessor(app, fastRetry(), nil).Handle(context.Background(), ok))
		assert.Len(t, app.calls, 2)
	})

	t.Run("exhausted retries surface", func(t *testing.T) {
		down := errors.New("db down")
		app := &fakeApplier{errs: []error{down, down, down}}
		err := NewProcessor(app, fastRetry(), nil).Handle(context.Background(), ok)
		assert.ErrorIs(t, err, down)
		assert.Len(t, app.calls, 3)
	})

	t.Run("malformed is dropped", func(t *testing.T) {
		app := &fakeApplier{}
		require.NoError(t, NewProcessor(app, fastRetry(), nil).Handle(context.Background(), entry("9-0")))
		assert.Empty(t, app.calls)
	})
}

// fakeStream serves scripted XAUTOCLAIM and XREADGROUP replies and records
// every call in order.
type fakeStream struct {
	mu      sync.Mutex
	claims  []*redis.XAutoClaimCmd
	replies []func(start string) ([]redis.XStream, error)
	ops     []string
	acked   []string
	done    func()
}

func (f *fakeStream) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "claim "+a.Consumer+" from "+a.Start)
	if len(f.claims) == 0 {
		return newXAutoClaimCmdResult(nil, "0-0", nil)
	}
	next := f.claims[0]
	f.claims = f.claims[1:]
	return next
}

func (f *fakeStream) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	return redis.NewStatusResult("", errors.New("BUSYGROUP Consumer Group name already exists"))
}

func (f *fakeStream) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := a.Streams[1]
	f.ops = append(f.ops, "read "+start)
	if len(f.replies) == 0 {
		f.done()
		return redis.NewXStreamSliceCmdResult(nil, context.Canceled)
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return redis.NewXStreamSliceCmdResult(next(start))
}

func (f *fakeStream) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func batch(msgs ...redis.XMessage) func(string) ([]redis.XStream, error) {
	return func(string) ([]redis.XStream, error) {
		return []redis.XStream{{Stream: "s", Messages: msgs}}, nil
	}
}

func TestConsumer_ReplaysPendingAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m1 := entry("1-0", "from", "0xa", "to", "0xb", "amount", "1", "timestamp", "0")
	m2 := entry("2-0", "from", "0xa", "to", "0xb", "amount", "2", "timestamp", "1")
	fs := &fakeStream{
		done: cancel,
		replies: []func(string) ([]redis.XStream, error){
			batch(),       // nothing pending at startup
			batch(m1, m2), // new entries; m2 fails once
			batch(m2),     // pending replay
			batch(),       // pending drained
			func(string) ([]redis.XStream, error) { return nil, redis.Nil },
		},
	}

	failed := false
	var seen []decimal.Decimal
	h := func(ctx context.Context, msg redis.XMessage) error {
		tr, err := Decode(msg)
		require.NoError(t, err)
		if msg.ID == "2-0" && !failed {
			failed = true
			return errors.New("transient")
		}
		seen = append(seen, tr.Amount)
		return nil
	}

	c, err := NewConsumer(fs, ConsumerConfig{
		Stream: "s", Group: "g", Consumer: "c",
		RetryInterval: time.Millisecond, MaxRetryInterval: time.Millisecond,
	}, nil)
	require.NoError(t, err)

	err = c.Run(ctx, h)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{
		"claim c from 0-0",
		"read 0", "read >", "read 0", "read 0", "read >", "read >",
	}, fs.ops)
	assert.Equal(t, []string{"1-0", "2-0"}, fs.acked)
	require.Len(t, seen, 2)
	assert.Equal(t, "1", seen[0].String())
	assert.Equal(t, "2", seen[1].String())
}

func TestConsumer_ClaimsOrphanedEntriesBeforeNewOnes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1-0 and 2-0 were left pending by a consumer that no longer exists.
	orphan1 := entry("1-0", "from", "0xa", "to", "0xb", "amount", "1", "timestamp", "0")
	orphan2 := entry("2-0", "from", "0xa", "to", "0xb", "amount", "2", "timestamp", "1")
	fresh := entry("3-0", "from", "0xa", "to", "0xb", "amount", "3", "timestamp", "2")
	fs := &fakeStream{
		done: cancel,
		claims: []*redis.XAutoClaimCmd{
			newXAutoClaimCmdResult([]redis.XMessage{orphan1}, "2-0", nil),
			newXAutoClaimCmdResult([]redis.XMessage{orphan2}, "0-0", nil),
		},
		replies: []func(string) ([]redis.XStream, error){
			batch(orphan1, orphan2), // now pending under this consumer
			batch(),
			batch(fresh),
		},
	}

	var applied []string
	h := func(ctx context.Context, msg redis.XMessage) error {
		applied = append(applied, msg.ID)
		return nil
	}

	c, err := NewConsumer(fs, ConsumerConfig{Stream: "s", Group: "g", Consumer: "new-host"}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Run(ctx, h), context.Canceled)

	assert.Equal(t, []string{
		"claim new-host from 0-0",
		"claim new-host from 2-0",
		"read 0", "read 0", "read >", "read >",
	}, fs.ops)
	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, applied)
	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, fs.acked)
}

func TestConsumer_RetriesFailedClaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fs := &fakeStream{
		done:   cancel,
		claims: []*redis.XAutoClaimCmd{newXAutoClaimCmdResult(nil, "", errors.New("LOADING"))},
	}
	c, err := NewConsumer(fs, ConsumerConfig{
		Stream: "s", Group: "g", Consumer: "c",
		RetryInterval: time.Millisecond, MaxRetryInterval: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Run(ctx, func(context.Context, redis.XMessage) error { return nil }), context.Canceled)

	assert.Equal(t, []string{"claim c from 0-0", "claim c from 0-0", "read 0"}, fs.ops)
}

// newXAutoClaimCmdResult builds a pre-resolved XAUTOCLAIM reply, in the style
// of go-redis's New*Result helpers (the library does not ship one for this
// command).
func newXAutoClaimCmdResult(val []redis.XMessage, start string, err error) *redis.XAutoClaimCmd {
	cmd := redis.NewXAutoClaimCmd(context.Background())
	cmd.SetVal(val, start)
	cmd.SetErr(err)
	return cmd
}
