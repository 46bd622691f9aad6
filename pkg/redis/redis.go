package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned by New when no URL is set.
var ErrNotConfigured = errors.New("redis url not configured")

type Config struct {
	URL          string `split_words:"true"`
	DB           int    `split_words:"true" default:"-1"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
}

// Enabled reports whether a Redis URL was provided.
func (r *Config) Enabled() bool {
	return r.URL != ""
}

// New parses the URL, applies the timeouts and pings the server.
// A non-negative DB overrides the database selected in the URL.
func (r *Config) New(ctx context.Context) (*redis.Client, error) {
	if !r.Enabled() {
		return nil, ErrNotConfigured
	}
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = time.Duration(r.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(r.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(r.DialTimeout) * time.Second
	if r.DB >= 0 {
		opts.DB = r.DB
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
