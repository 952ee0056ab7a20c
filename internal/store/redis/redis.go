package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/diogoX451/bazaar/pkg/types"
)

// RedisStore guarda o estado compartilhado entre nós que não precisa ir
// para o banco: ids de mensagem já vistos e o cache de listings
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	server string
}

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// Server separa as chaves de cada nó
	Server     string
	DefaultTTL time.Duration
}

func New(cfg Config) (*RedisStore, error) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}
	if cfg.Server == "" {
		cfg.Server = "default"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    cfg.DefaultTTL,
		server: cfg.Server,
	}, nil
}

// Chaves Redis:
// dedup:{server}:{id} -> "1", expira com a janela de dedup
// listings:{server} -> hash id -> listing codificado
// lister:{server}:{lister} -> set de ids do lister

func (r *RedisStore) dedupKey(id uuid.UUID) string {
	return fmt.Sprintf("dedup:%s:%s", r.server, id)
}

func (r *RedisStore) listingsKey() string {
	return fmt.Sprintf("listings:%s", r.server)
}

func (r *RedisStore) listerKey(lister uuid.UUID) string {
	return fmt.Sprintf("lister:%s:%s", r.server, lister)
}

// Observe grava o id com SET NX. Devolve true só para quem gravou primeiro.
// window <= 0 usa o TTL padrão.
func (r *RedisStore) Observe(ctx context.Context, id uuid.UUID, window time.Duration) (bool, error) {
	if window <= 0 {
		window = r.ttl
	}
	ok, err := r.client.SetNX(ctx, r.dedupKey(id), 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup %s: %w", id, err)
	}
	return ok, nil
}

func (r *RedisStore) PutListing(ctx context.Context, listing types.Listing) error {
	data, err := types.EncodeListing(listing)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, r.listingsKey(), listing.GetID().String(), data)
	pipe.SAdd(ctx, r.listerKey(listing.GetLister()), listing.GetID().String())
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetListing(ctx context.Context, id uuid.UUID) (types.Listing, bool, error) {
	data, err := r.client.HGet(ctx, r.listingsKey(), id.String()).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	listing, err := types.DecodeListing([]byte(data))
	if err != nil {
		return nil, false, fmt.Errorf("cached listing %s: %w", id, err)
	}
	return listing, true, nil
}

func (r *RedisStore) DeleteListing(ctx context.Context, id uuid.UUID) error {
	listing, ok, err := r.GetListing(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.HDel(ctx, r.listingsKey(), id.String())
	if ok {
		pipe.SRem(ctx, r.listerKey(listing.GetLister()), id.String())
	}
	_, err = pipe.Exec(ctx)
	return err
}

// AllListings lê o hash inteiro. Entradas corrompidas são descartadas.
func (r *RedisStore) AllListings(ctx context.Context) ([]types.Listing, error) {
	entries, err := r.client.HGetAll(ctx, r.listingsKey()).Result()
	if err != nil {
		return nil, err
	}

	out := make([]types.Listing, 0, len(entries))
	for _, data := range entries {
		listing, err := types.DecodeListing([]byte(data))
		if err != nil {
			continue
		}
		out = append(out, listing)
	}
	return out, nil
}

// CountByLister usa o índice por lister e conta só os que vencem depois
// de now. Entradas corrompidas não contam.
func (r *RedisStore) CountByLister(ctx context.Context, lister uuid.UUID, now time.Time) (int, error) {
	ids, err := r.client.SMembers(ctx, r.listerKey(lister)).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	values, err := r.client.HMGet(ctx, r.listingsKey(), ids...).Result()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		listing, err := types.DecodeListing([]byte(data))
		if err != nil {
			continue
		}
		if now.Before(listing.GetExpiration()) {
			n++
		}
	}
	return n, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
