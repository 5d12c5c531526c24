package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamClient is the part of *redis.Client the consumer needs.
type streamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

type Handler func(ctx context.Context, msg redis.XMessage) error

type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string

	// Count is the max number of entries per read. Default: 100.
	Count int64
	// Block is how long a read waits for new entries. Default: 5s.
	Block time.Duration

	// RetryInterval starts the backoff after read or handler errors and
	// doubles up to MaxRetryInterval. Defaults: 1s and 30s.
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration
}

// Consumer reads one stream through a consumer group and hands entries to a
// handler strictly in stream order. An entry is acked only after the handler
// accepts it; on handler failure the consumer re-reads its own pending
// entries before taking new ones, so nothing is skipped. At startup it takes
// over every entry pending in the group, so a rename or a crashed
// predecessor cannot orphan one.
type Consumer struct {
	rdb streamClient
	cfg ConsumerConfig
	log *slog.Logger
}

func NewConsumer(rdb streamClient, cfg ConsumerConfig, log *slog.Logger) (*Consumer, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Stream == "" || cfg.Group == "" || cfg.Consumer == "" {
		return nil, errors.New("stream, group and consumer names are required")
	}
	if cfg.Count == 0 {
		cfg.Count = 100
	}
	if cfg.Block == 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.MaxRetryInterval == 0 {
		cfg.MaxRetryInterval = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{rdb: rdb, cfg: cfg, log: log}, nil
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	c.log.Info("consumer group ready", "stream", c.cfg.Stream, "group", c.cfg.Group, "consumer", c.cfg.Consumer)

	retryInterval := c.cfg.RetryInterval
	backoff := func() error {
		if err := sleep(ctx, retryInterval); err != nil {
			return err
		}
		retryInterval = min(retryInterval*2, c.cfg.MaxRetryInterval)
		return nil
	}

	for {
		n, err := c.claimPending(ctx)
		if err == nil {
			if n > 0 {
				c.log.Warn("claimed pending entries from other consumers", "stream", c.cfg.Stream, "count", n)
			}
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("claim pending entries failed, will retry", "stream", c.cfg.Stream, "err", err, "retry_in", retryInterval)
		if err := backoff(); err != nil {
			return err
		}
	}
	retryInterval = c.cfg.RetryInterval

	pending := true // start with whatever is pending under this consumer

	for {
		if err := ctx.Err(); err != nil {
			c.log.Info("stream consumer shutting down", "stream", c.cfg.Stream)
			return err
		}

		start := ">"
		if pending {
			start = "0"
		}
		msgs, err := c.read(ctx, start)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			c.log.Warn("read from stream failed, will retry", "stream", c.cfg.Stream, "err", err, "retry_in", retryInterval)
			if err := backoff(); err != nil {
				return err
			}
			continue
		}

		if pending && len(msgs) == 0 {
			pending = false
			continue
		}
		if err := c.process(ctx, h, msgs); err != nil {
			c.log.Error("processing stream entry failed", "stream", c.cfg.Stream, "err", err, "retry_in", retryInterval)
			pending = true
			if err := backoff(); err != nil {
				return err
			}
			continue
		}
		retryInterval = c.cfg.RetryInterval
	}
}

// claimPending moves every entry pending anywhere in the group to this
// consumer. It must finish before the first ">" read, or newer entries
// would overtake the orphaned ones.
func (c *Consumer) claimPending(ctx context.Context) (int, error) {
	claimed := 0
	start := "0-0"
	for {
		msgs, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  0,
			Start:    start,
			Count:    c.cfg.Count,
		}).Result()
		if err != nil {
			return claimed, fmt.Errorf("xautoclaim: %w", err)
		}
		claimed += len(msgs)
		if next == "" || next == "0-0" {
			return claimed, nil
		}
		start = next
	}
}

func (c *Consumer) read(ctx context.Context, start string) ([]redis.XMessage, error) {
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, start},
		Count:    c.cfg.Count,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []redis.XMessage
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (c *Consumer) process(ctx context.Context, h Handler, msgs []redis.XMessage) error {
	for _, m := range msgs {
		if err := h(ctx, m); err != nil {
			return fmt.Errorf("entry %s: %w", m.ID, err)
		}
		// a lost ack only causes a redelivery, which the ledger ignores
		if err := c.rdb.XAck(ctx, c.cfg.Stream, c.cfg.Group, m.ID).Err(); err != nil {
			c.log.Warn("ack failed", "stream", c.cfg.Stream, "entry", m.ID, "err", err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
