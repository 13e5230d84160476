package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store is flat key/value blob storage that a StoreResolver can expose as an
// asset scheme.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

var Missing = fmt.Errorf("%w: asset missing", ErrAssetIO)

type FSStore string

func (f FSStore) getPath(key string) string {
	return filepath.Join(string(f), filepath.FromSlash(key))
}

func (f FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	target := f.getPath(key)

	if !FileExists(target) {
		return nil, Missing
	}

	return os.ReadFile(target)
}

func (f FSStore) Set(ctx context.Context, key string, data []byte) error {
	target := f.getPath(key)
	return WriteBytes(data, target)
}

const (
	ASSET_KEY    = "assets-%s"
	ASSET_EXPIRY = time.Duration(1 * time.Hour)
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

func (r *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	key := fmt.Sprintf(ASSET_KEY, id)
	data, err := r.client.Get(ctx, key).Bytes()

	if err == redis.Nil {
		return nil, Missing
	}

	if err != nil {
		return nil, err
	}

	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, id string, data []byte) error {
	key := fmt.Sprintf(ASSET_KEY, id)
	return r.client.Set(ctx, key, data, ASSET_EXPIRY).Err()
}

// RedisCache is a RedisStore whose entries expire after ttl instead of
// ASSET_EXPIRY. A ttl of 0 keeps them until they are overwritten.
type RedisCache struct {
	*RedisStore
	ttl time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		RedisStore: NewRedisStore(client),
		ttl:        ttl,
	}
}

func (r *RedisCache) Set(ctx context.Context, id string, data []byte) error {
	key := fmt.Sprintf(ASSET_KEY, id)
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

type blob struct {
	Name    string `gorm:"primaryKey;size:255"`
	Data    []byte
	Updated time.Time
}

func (blob) TableName() string {
	return "blobs"
}

// SQLStore keeps blobs in a single SQLite table.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&blob{}); err != nil {
		return nil, err
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row blob
	err := s.db.WithContext(ctx).First(&row, "name = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Missing
	}
	if err != nil {
		return nil, err
	}

	return row.Data, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, data []byte) error {
	row := blob{
		Name:    key,
		Data:    data,
		Updated: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

var _ Store = (*FSStore)(nil)
var _ Store = (*RedisStore)(nil)
var _ Store = (*RedisCache)(nil)
var _ Store = (*SQLStore)(nil)
