// Package redis publishes finished session reports to Redis.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vctrack/internal/domain/report"
	"github.com/osa030/vctrack/internal/infra/config"
)

// ReportSink publishes each report on a channel and keeps the most recent
// ones in a capped list.
type ReportSink struct {
	client  *redis.Client
	channel string
	listKey string
	listMax int64
}

// NewReportSink creates a sink for the configured Redis server.
func NewReportSink(cfg config.RedisConfig) *ReportSink {
	return &ReportSink{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		channel: cfg.Channel,
		listKey: cfg.ListKey,
		listMax: cfg.ListMax,
	}
}

// Ping verifies the connection.
func (s *ReportSink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "failed to connect to redis")
	}
	return nil
}

// Publish sends the report to subscribers and stores it in the recent list.
func (s *ReportSink) Publish(ctx context.Context, sessionID string, r *report.Report) error {
	payload, err := Encode(sessionID, r)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Publish(ctx, s.channel, payload)
	pipe.LPush(ctx, s.listKey, payload)
	pipe.LTrim(ctx, s.listKey, 0, s.listMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to publish report: session_id=%s", sessionID)
	}

	zlog.Debug().Msgf("report published: session_id=%s channel=%s bytes=%d", sessionID, s.channel, len(payload))
	return nil
}

// Close closes the client.
func (s *ReportSink) Close() error {
	return s.client.Close()
}

// Payload is the published form of a report.
type Payload struct {
	SessionID           string        `json:"session_id"`
	GeneratedAt         time.Time     `json:"generated_at"`
	TotalElapsedSeconds int64         `json:"total_elapsed_seconds"`
	TotalCoins          int           `json:"total_coins"`
	Users               []PayloadUser `json:"users"`
}

// PayloadUser is one user's line in a published report.
type PayloadUser struct {
	UserID         string `json:"user_id"`
	Tag            string `json:"tag"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	BaseCoins      int    `json:"base_coins"`
	BoostPercent   int    `json:"boost_percent"`
	Coins          int    `json:"coins"`
}

// Encode renders a report as JSON.
func Encode(sessionID string, r *report.Report) (string, error) {
	p := Payload{
		SessionID:           sessionID,
		GeneratedAt:         r.GeneratedAt.UTC(),
		TotalElapsedSeconds: int64(r.TotalElapsed / time.Second),
		TotalCoins:          r.TotalCoins,
		Users:               make([]PayloadUser, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		p.Users = append(p.Users, PayloadUser{
			UserID:         l.UserID,
			Tag:            l.Tag,
			ElapsedSeconds: int64(l.Elapsed / time.Second),
			BaseCoins:      l.Reward.Base,
			BoostPercent:   l.Reward.BoostPercent,
			Coins:          l.Reward.Coins,
		})
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode report")
	}
	return string(b), nil
}
