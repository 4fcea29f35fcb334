package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dialer-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Locker serialises dispatcher runs for one tenant across processes.
// TryLock returns an empty token when someone else holds key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// Pacer caps how many calls a campaign may start per minute.
type Pacer interface {
	Allow(ctx context.Context, tenantID, campaignID string, perMinute int, now time.Time) (bool, error)
}

// RedisLocker holds the tenant lock as a token-owned redis key.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker { return &RedisLocker{rdb: rdb} }

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return utils.AcquireLock(ctx, l.rdb, key, ttl)
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return utils.ReleaseLock(ctx, l.rdb, key, token)
}

// RedisPacer counts calls in fixed one-minute windows per campaign.
type RedisPacer struct {
	rdb *redis.Client
}

func NewRedisPacer(rdb *redis.Client) *RedisPacer { return &RedisPacer{rdb: rdb} }

func (p *RedisPacer) Allow(ctx context.Context, tenantID, campaignID string, perMinute int, now time.Time) (bool, error) {
	if perMinute <= 0 {
		return true, nil
	}
	key := fmt.Sprintf("pace:%s:%s:%d", tenantID, campaignID, now.Unix()/60)
	return utils.AcquireWindowSlot(ctx, p.rdb, key, perMinute, time.Minute)
}

// LocalLocker is an in-process Locker for single-instance runs and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]string
	n    int
}

func NewLocalLocker() *LocalLocker { return &LocalLocker{held: map[string]string{}} }

func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", nil
	}
	l.n++
	token := fmt.Sprintf("local-%d", l.n)
	l.held[key] = token
	return token, nil
}

func (l *LocalLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// LocalPacer is an in-process Pacer with the same fixed-window semantics as RedisPacer.
type LocalPacer struct {
	mu     sync.Mutex
	minute int64
	counts map[string]int
}

func NewLocalPacer() *LocalPacer { return &LocalPacer{counts: map[string]int{}} }

func (p *LocalPacer) Allow(ctx context.Context, tenantID, campaignID string, perMinute int, now time.Time) (bool, error) {
	if perMinute <= 0 {
		return true, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if m := now.Unix() / 60; m != p.minute {
		p.minute, p.counts = m, map[string]int{}
	}
	key := tenantID + ":" + campaignID
	if p.counts[key] >= perMinute {
		return false, nil
	}
	p.counts[key]++
	return true, nil
}
