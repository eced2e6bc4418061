// Package redis opens the shared Redis client used by the redis store and the
// redis sync bus. Startup waits for the server with capped exponential backoff.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Quranfi-Project/quranfi-web/internal/logger"
)

// ConnectOptions defines the Redis client and its startup retry behavior.
type ConnectOptions struct {
	URL            string        // optional redis:// or rediss:// URL, overrides Addr, User, Password and RedisDB
	Addr           string        // ex: "localhost:6379"
	User           string        // optional
	Password       string        // optional
	RedisDB        int           // Redis DB number
	DialTimeout    time.Duration // per connection
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PoolSize       int
	ConnectTimeout time.Duration // total time allowed for the startup ping loop (ex: 30s)
	RetryInterval  time.Duration // first wait between pings, doubled after each failure (ex: 2s)
	MaxWait        time.Duration // cap on the wait between pings (ex: 10s)
	PingTimeout    time.Duration // per ping
	WarnThreshold  int           // failed attempts logged as warnings before switching to errors
}

// Validate ensures the retry settings are usable.
func (o ConnectOptions) Validate() error {
	var errs []error
	if o.Addr == "" && o.URL == "" {
		errs = append(errs, errors.New("redis address or URL is required"))
	}
	for name, d := range map[string]time.Duration{
		"ConnectTimeout": o.ConnectTimeout,
		"RetryInterval":  o.RetryInterval,
		"MaxWait":        o.MaxWait,
		"PingTimeout":    o.PingTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, d))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

func (o ConnectOptions) clientOptions() (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     o.Addr,
		Username: o.User,
		Password: o.Password,
		DB:       o.RedisDB,
	}
	if o.URL != "" {
		parsed, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = o.DialTimeout
	opts.ReadTimeout = o.ReadTimeout
	opts.WriteTimeout = o.WriteTimeout
	opts.PoolSize = o.PoolSize
	return opts, nil
}

// New creates a Redis client and pings it until it answers, ConnectTimeout
// elapses or ctx is done. The caller owns the returned client.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	clientOpts, err := opts.clientOptions()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(clientOpts)
	if err := waitForPing(ctx, client, opts, log.With(logger.String("addr", clientOpts.Addr))); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// backoff doubles the wait after each failure, up to max.
type backoff struct {
	next, max time.Duration
}

func (b *backoff) wait() time.Duration {
	w := b.next
	b.next = min(b.next*2, b.max)
	return w
}

func waitForPing(parent context.Context, client *redis.Client, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(parent, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis", logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	b := backoff{next: opts.RetryInterval, max: opts.MaxWait}
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected to redis")
			}
			return nil
		}

		wait := b.wait()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable, giving up", logger.Int("attempts", attempt), logger.Error(err))
			return fmt.Errorf("redis unavailable after %d attempts (timeout: %v): %w",
				attempt, opts.ConnectTimeout, err)
		case <-timer.C:
			fields := []logger.Field{logger.Int("attempt", attempt), logger.Duration("next_retry_in", wait), logger.Error(err)}
			if attempt <= opts.WarnThreshold {
				log.Warn("redis connection failed, retrying", fields...)
			} else {
				log.Error("redis still unavailable, bookmarks cannot be stored yet", fields...)
			}
		}
	}
}
