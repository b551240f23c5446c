// Package sequence allocates per-tenant human-readable ticket numbers.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// KindIncident is the sequence kind used for incident ticket numbers.
const KindIncident = "incident"

// Allocator hands out strictly increasing values per tenant and kind.
type Allocator interface {
	Next(ctx context.Context, organizationID, kind string) (int64, error)
}

// Format renders n as a ticket number such as INC-000012.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

// Numberer formats allocated values with a fixed prefix.
type Numberer struct {
	allocator Allocator
	prefix    string
	kind      string
}

// NewNumberer constructs a numberer for incident tickets.
func NewNumberer(allocator Allocator, prefix string) *Numberer {
	return &Numberer{allocator: allocator, prefix: prefix, kind: KindIncident}
}

// Next allocates the tenant's next ticket number.
func (n *Numberer) Next(ctx context.Context, organizationID string) (string, error) {
	value, err := n.allocator.Next(ctx, organizationID, n.kind)
	if err != nil {
		return "", fmt.Errorf("allocate ticket number: %w", err)
	}
	return Format(n.prefix, value), nil
}

type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisAllocator uses INCR on ticket_seq:{org}:{kind}.
type RedisAllocator struct {
	client incrementer
}

// NewRedisAllocator constructs an allocator over a go-redis client.
func NewRedisAllocator(client incrementer) *RedisAllocator {
	return &RedisAllocator{client: client}
}

// Next increments and returns the tenant counter.
func (a *RedisAllocator) Next(ctx context.Context, organizationID, kind string) (int64, error) {
	return a.client.Incr(ctx, Key(organizationID, kind)).Result()
}

// Key returns the Redis key of a tenant counter.
func Key(organizationID, kind string) string {
	return fmt.Sprintf("ticket_seq:%s:%s", organizationID, kind)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAllocator keeps counters in the ticket_sequences table.
type PostgresAllocator struct {
	db rowQuerier
}

// NewPostgresAllocator constructs an allocator over a pgx pool.
func NewPostgresAllocator(db rowQuerier) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

// Next upserts the counter row and returns the new value.
func (a *PostgresAllocator) Next(ctx context.Context, organizationID, kind string) (int64, error) {
	const query = `
        INSERT INTO ticket_sequences (organization_id, kind, last_value)
        VALUES ($1,$2,1)
        ON CONFLICT (organization_id, kind) DO UPDATE SET last_value = ticket_sequences.last_value + 1
        RETURNING last_value`
	var value int64
	if err := a.db.QueryRow(ctx, query, organizationID, kind).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

// MemoryAllocator keeps counters in process.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryAllocator constructs an empty allocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counters: map[string]int64{}}
}

// Next increments the in-process counter.
func (a *MemoryAllocator) Next(_ context.Context, organizationID, kind string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := Key(organizationID, kind)
	a.counters[key]++
	return a.counters[key], nil
}
