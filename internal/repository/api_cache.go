package repository

import (
	"errors"
	"time"

	"github.com/user/cinechat/internal/model"
	"gorm.io/gorm"
)

// APICacheRepository 外部 API 响应的持久化缓存
// 只负责存取 {cache_key, payload, created_at} 信封，有效期判断由调用方按命名空间决定
type APICacheRepository struct {
	db *gorm.DB
}

func NewAPICacheRepository(db *gorm.DB) *APICacheRepository {
	return &APICacheRepository{db: db}
}

// Find 查找缓存条目，未命中返回 nil
func (r *APICacheRepository) Find(key string) (*model.APICache, error) {
	entry := &model.APICache{}
	err := r.db.Raw(`
		SELECT cache_key, payload, created_at
		FROM api_cache
		WHERE cache_key = $1
		LIMIT 1
	`, key).Row().Scan(&entry.CacheKey, &entry.Payload, &entry.CreatedAt)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, err
	}

	return entry, nil
}

// Upsert 创建或更新缓存条目（总是覆盖，时间戳取当前时间）
func (r *APICacheRepository) Upsert(key, payload string) error {
	return r.db.Exec(`
		INSERT INTO api_cache (cache_key, payload, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at
	`, key, payload).Error
}

// CleanExpired 清理早于 maxAge 的条目
// TTL 是按命名空间在读取时判断的，这里按全局最长有效期兜底清理
func (r *APICacheRepository) CleanExpired(maxAge time.Duration) (int64, error) {
	result := r.db.Exec(`
		DELETE FROM api_cache
		WHERE created_at < NOW() - INTERVAL '1 second' * $1
	`, int64(maxAge.Seconds()))
	return result.RowsAffected, result.Error
}
