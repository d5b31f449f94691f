// Package status exposes controller health over HTTP and keeps the last
// pushed document and bridge state in Redis for operators that were offline.
package status

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bridgelink/internal/bridge"
	"bridgelink/pkg/document"

	"github.com/redis/go-redis/v9"
)

const (
	lastPushKey = "bridgelink:push:last"
	stateKey    = "bridgelink:bridge:state"
)

// PushRecord is the most recent document offered to the push channel.
type PushRecord struct {
	Document  *document.Document `json:"document"`
	Delivered bool               `json:"delivered"`
	At        time.Time          `json:"at"`
}

// SnapshotStore caches push and bridge snapshots. A nil store, or one
// without a client, accepts writes and reports nothing.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore connects to redisURL and verifies the connection.
func NewSnapshotStore(redisURL, password string, ttl time.Duration) (*SnapshotStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SnapshotStore{client: rdb, ttl: ttl}, nil
}

func (s *SnapshotStore) enabled() bool {
	return s != nil && s.client != nil
}

// SaveLastPush overwrites the last push record.
func (s *SnapshotStore) SaveLastPush(ctx context.Context, rec PushRecord) error {
	if !s.enabled() {
		return nil
	}
	raw, err := rec.Document.Serialize()
	if err != nil {
		return err
	}

	fields := map[string]any{
		"document":  string(raw),
		"delivered": strconv.FormatBool(rec.Delivered),
		"at":        rec.At.Format(time.RFC3339Nano),
	}
	if err := s.client.HSet(ctx, lastPushKey, fields).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, lastPushKey, s.ttl).Err()
}

// LastPush returns nil, nil when nothing is cached.
func (s *SnapshotStore) LastPush(ctx context.Context) (*PushRecord, error) {
	if !s.enabled() {
		return nil, nil
	}
	fields, err := s.client.HGetAll(ctx, lastPushKey).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	doc, err := document.Parse([]byte(fields["document"]))
	if err != nil {
		return nil, fmt.Errorf("corrupt push snapshot: %w", err)
	}
	rec := &PushRecord{Document: doc}
	rec.Delivered, _ = strconv.ParseBool(fields["delivered"])
	rec.At, _ = time.Parse(time.RFC3339Nano, fields["at"])
	return rec, nil
}

// SaveState overwrites the bridge state snapshot.
func (s *SnapshotStore) SaveState(ctx context.Context, st bridge.State) error {
	if !s.enabled() {
		return nil
	}
	fields := map[string]any{
		"current_position": strconv.FormatFloat(st.Position, 'g', -1, 64),
		"target_position":  strconv.FormatFloat(st.Target, 'g', -1, 64),
		"bridge_lights":    st.Lights,
		"overrides":        strconv.FormatBool(st.Overrides),
	}
	if err := s.client.HSet(ctx, stateKey, fields).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, stateKey, s.ttl).Err()
}

// State returns nil, nil when nothing is cached.
func (s *SnapshotStore) State(ctx context.Context) (*bridge.State, error) {
	if !s.enabled() {
		return nil, nil
	}
	fields, err := s.client.HGetAll(ctx, stateKey).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	st := &bridge.State{Lights: fields["bridge_lights"]}
	st.Position, _ = strconv.ParseFloat(fields["current_position"], 64)
	st.Target, _ = strconv.ParseFloat(fields["target_position"], 64)
	st.Overrides, _ = strconv.ParseBool(fields["overrides"])
	return st, nil
}

func (s *SnapshotStore) Close() error {
	if !s.enabled() {
		return nil
	}
	return s.client.Close()
}
