// Package redis publishes live console state (ticks, candles, signals) so
// companion dashboards can follow the stream, and reads operator feature
// flags.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"synthdesk/internal/model"
	"synthdesk/internal/signal"
)

const defaultLatestTTL = 30 * time.Minute

// Config configures the Redis connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes latest-value keys and pubsub messages for each pipeline
// update and derived signal.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// Run reads pipeline updates and publishes them until ctx is cancelled or
// the channel is closed.
func (p *Publisher) Run(ctx context.Context, updates <-chan model.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			p.publishUpdate(ctx, upd)
		}
	}
}

// publishUpdate performs pipelined SET latest + PUBLISH for the tick and its
// candle in one network roundtrip.
func (p *Publisher) publishUpdate(ctx context.Context, upd model.Update) {
	tickData, err := json.Marshal(upd.Tick)
	if err != nil {
		log.Printf("[redis] marshal tick %s: %v", upd.Instrument, err)
		return
	}
	candleData := upd.Candle.JSON()
	tf := strconv.Itoa(upd.Timeframe)

	pipe := p.client.Pipeline()

	pipe.Set(ctx, "tick:latest:"+upd.Instrument, tickData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:tick:"+upd.Instrument, tickData)

	pipe.Set(ctx, "candle:"+tf+"s:latest:"+upd.Instrument, candleData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:candle:"+tf+"s:"+upd.Instrument, candleData)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] pipeline error for %s: %v", upd.Instrument, err)
	}
}

// PublishSignal publishes one derived signal (SET latest + PUBLISH).
func (p *Publisher) PublishSignal(ctx context.Context, sig signal.Signal) {
	data, err := json.Marshal(sig)
	if err != nil {
		log.Printf("[redis] marshal signal %s: %v", sig.Instrument, err)
		return
	}
	tf := strconv.Itoa(sig.Timeframe)

	pipe := p.client.Pipeline()
	pipe.Set(ctx, "signal:"+tf+"s:latest:"+sig.Instrument, data, defaultLatestTTL)
	pipe.Publish(ctx, "pub:signal:"+tf+"s:"+sig.Instrument, data)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] signal pipeline error for %s: %v", sig.Instrument, err)
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
