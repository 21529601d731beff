package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

const (
	backendRedis      = "redis"
	redisTxMaxRetries = 5
)

// updateIfExists replaces a hash field only when it is already present.
var updateIfExists = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// RedisStore keeps records as JSON values in Redis hashes so several service
// instances can share one dataset.
type RedisStore struct {
	opts   options
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr, password string, db int, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewRedisStoreWithClient(client, opts...), nil
}

// NewRedisStoreWithClient wraps an existing client. Close closes the client.
func NewRedisStoreWithClient(client *redis.Client, opts ...Option) *RedisStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{opts: o, client: client}
}

func (r *RedisStore) salesKey() string    { return r.opts.keyPrefix + ":sales" }
func (r *RedisStore) contactsKey() string { return r.opts.keyPrefix + ":contacts" }
func (r *RedisStore) noticeKey() string   { return r.opts.keyPrefix + ":notice" }

// Close closes the underlying client.
func (r *RedisStore) Close() error { return r.client.Close() }

// Create implements SaleStore.
func (r *RedisStore) Create(ctx context.Context, rec model.SaleRecord) (out model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendRedis, "create", start, err) }(time.Now())

	r.opts.prepareCreate(&rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return model.SaleRecord{}, err
	}
	ok, err := r.client.HSetNX(ctx, r.salesKey(), rec.ID, data).Result()
	if err != nil {
		return model.SaleRecord{}, err
	}
	if !ok {
		return model.SaleRecord{}, ErrAlreadyExists
	}
	return rec, nil
}

// Update implements SaleStore.
func (r *RedisStore) Update(ctx context.Context, rec model.SaleRecord) (err error) {
	defer func(start time.Time) { observe(backendRedis, "update", start, err) }(time.Now())
	if rec.ID == "" {
		return ErrEmptyID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.replace(ctx, r.salesKey(), rec.ID, data)
}

func (r *RedisStore) replace(ctx context.Context, key, field string, data []byte) error {
	n, err := updateIfExists.Run(ctx, r.client, []string{key}, field, data).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) remove(ctx context.Context, key, field string) error {
	n, err := r.client.HDel(ctx, key, field).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements SaleStore.
func (r *RedisStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe(backendRedis, "delete", start, err) }(time.Now())
	return r.remove(ctx, r.salesKey(), id)
}

// Get implements SaleStore.
func (r *RedisStore) Get(ctx context.Context, id string) (rec model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendRedis, "get", start, err) }(time.Now())

	data, err := r.client.HGet(ctx, r.salesKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.SaleRecord{}, ErrNotFound
	}
	if err != nil {
		return model.SaleRecord{}, err
	}
	err = json.Unmarshal(data, &rec)
	return rec, err
}

// List implements SaleStore.
func (r *RedisStore) List(ctx context.Context) (out []model.SaleRecord, err error) {
	defer func(start time.Time) { observe(backendRedis, "list", start, err) }(time.Now())

	vals, err := r.client.HVals(ctx, r.salesKey()).Result()
	if err != nil {
		return nil, err
	}
	out = make([]model.SaleRecord, 0, len(vals))
	for _, v := range vals {
		var rec model.SaleRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decode sale: %w", err)
		}
		out = append(out, rec)
	}
	sortSales(out)
	return out, nil
}

// Count implements SaleStore.
func (r *RedisStore) Count(ctx context.Context) (_ int, err error) {
	defer func(start time.Time) { observe(backendRedis, "count", start, err) }(time.Now())
	n, err := r.client.HLen(ctx, r.salesKey()).Result()
	return int(n), err
}

// GetNotice implements NoticeStore.
func (r *RedisStore) GetNotice(ctx context.Context) (_ model.Notice, err error) {
	defer func(start time.Time) { observe(backendRedis, "get_notice", start, err) }(time.Now())
	return r.readNotice(ctx, r.client)
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) readNotice(ctx context.Context, c stringGetter) (model.Notice, error) {
	var n model.Notice
	data, err := c.Get(ctx, r.noticeKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return n, nil
	}
	if err != nil {
		return n, err
	}
	err = json.Unmarshal(data, &n)
	return n, err
}

// SetNotice implements NoticeStore. The version bump runs in an optimistic
// transaction and retries when another writer wins the race.
func (r *RedisStore) SetNotice(ctx context.Context, message string) (_ model.Notice, err error) {
	defer func(start time.Time) { observe(backendRedis, "set_notice", start, err) }(time.Now())
	return r.setNotice(ctx, message)
}

// ClearNotice implements NoticeStore.
func (r *RedisStore) ClearNotice(ctx context.Context) (_ model.Notice, err error) {
	defer func(start time.Time) { observe(backendRedis, "clear_notice", start, err) }(time.Now())
	return r.setNotice(ctx, "")
}

func (r *RedisStore) setNotice(ctx context.Context, message string) (model.Notice, error) {
	var out model.Notice
	txf := func(tx *redis.Tx) error {
		cur, err := r.readNotice(ctx, tx)
		if err != nil {
			return err
		}
		out = model.Notice{Message: message, Version: cur.Version + 1, UpdatedAt: r.opts.now().UTC()}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.noticeKey(), data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redisTxMaxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.noticeKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return model.Notice{}, err
		}
		return out, nil
	}
	return model.Notice{}, fmt.Errorf("set notice: %w", redis.TxFailedErr)
}

// ListContacts implements ContactStore.
func (r *RedisStore) ListContacts(ctx context.Context) (_ []model.ContactLink, err error) {
	defer func(start time.Time) { observe(backendRedis, "list_contacts", start, err) }(time.Now())
	vals, err := r.client.HVals(ctx, r.contactsKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.ContactLink, 0, len(vals))
	for _, v := range vals {
		var c model.ContactLink
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return nil, fmt.Errorf("decode contact: %w", err)
		}
		out = append(out, c)
	}
	sortContacts(out)
	return out, nil
}

// AddContact implements ContactStore.
func (r *RedisStore) AddContact(ctx context.Context, c model.ContactLink) (_ model.ContactLink, err error) {
	defer func(start time.Time) { observe(backendRedis, "add_contact", start, err) }(time.Now())
	if c.ID == "" {
		c.ID = r.opts.newID()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return model.ContactLink{}, err
	}
	ok, err := r.client.HSetNX(ctx, r.contactsKey(), c.ID, data).Result()
	if err != nil {
		return model.ContactLink{}, err
	}
	if !ok {
		return model.ContactLink{}, ErrAlreadyExists
	}
	return c, nil
}

// UpdateContact implements ContactStore.
func (r *RedisStore) UpdateContact(ctx context.Context, c model.ContactLink) (err error) {
	defer func(start time.Time) { observe(backendRedis, "update_contact", start, err) }(time.Now())
	if c.ID == "" {
		return ErrEmptyID
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.replace(ctx, r.contactsKey(), c.ID, data)
}

// DeleteContact implements ContactStore.
func (r *RedisStore) DeleteContact(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe(backendRedis, "delete_contact", start, err) }(time.Now())
	return r.remove(ctx, r.contactsKey(), id)
}
