package service

import (
	"encoding/json"
	"log"
	"time"

	"github.com/user/cinechat/internal/repository"
	"github.com/user/cinechat/internal/utils"
)

// CacheStore 时间窗缓存契约
// TTL 由读取方按键命名空间给定（详情 24h、榜单 1h），写入只记录时间戳
type CacheStore interface {
	Get(key string, ttl time.Duration, target interface{}) bool
	Set(key string, value interface{})
}

// cacheEnvelope 内存层信封，与持久层同样按 {数据, 时间戳} 存放
type cacheEnvelope struct {
	Payload   string
	CreatedAt time.Time
}

// LayeredCache 内存 + Postgres 两级缓存
// 任何一级的读写失败都只记日志，调用方拿到"未命中"后照常回源
type LayeredCache struct {
	repo *repository.APICacheRepository
	now  func() time.Time
}

// NewLayeredCache 创建缓存，repo 为空时退化为纯内存缓存
func NewLayeredCache(repo *repository.APICacheRepository) *LayeredCache {
	return &LayeredCache{
		repo: repo,
		now:  time.Now,
	}
}

// Get 读取缓存并反序列化到 target，过期/损坏/出错一律按未命中处理
func (c *LayeredCache) Get(key string, ttl time.Duration, target interface{}) bool {
	// 1. 内存层
	if cached, found := utils.CacheGet(key); found {
		if env, ok := cached.(cacheEnvelope); ok && c.fresh(env.CreatedAt, ttl) {
			if err := json.Unmarshal([]byte(env.Payload), target); err == nil {
				return true
			}
			utils.CacheDelete(key)
		}
	}

	// 2. 持久层
	if c.repo == nil {
		return false
	}
	entry, err := c.repo.Find(key)
	if err != nil {
		log.Printf("[Cache] 读取持久缓存失败 (%s): %v", key, err)
		return false
	}
	if entry == nil || !c.fresh(entry.CreatedAt, ttl) {
		return false
	}
	if err := json.Unmarshal([]byte(entry.Payload), target); err != nil {
		log.Printf("[Cache] 缓存条目损坏，按未命中处理 (%s): %v", key, err)
		return false
	}

	// 回填内存层，保留原始时间戳以便 TTL 判断一致
	utils.CacheSet(key, cacheEnvelope{Payload: entry.Payload, CreatedAt: entry.CreatedAt}, 24*time.Hour)
	return true
}

// Set 写入两级缓存，总是覆盖
func (c *LayeredCache) Set(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("[Cache] 序列化缓存失败 (%s): %v", key, err)
		return
	}

	utils.CacheSet(key, cacheEnvelope{Payload: string(data), CreatedAt: c.now()}, 24*time.Hour)

	if c.repo == nil {
		return
	}
	if err := c.repo.Upsert(key, string(data)); err != nil {
		log.Printf("[Cache] 写入持久缓存失败 (%s): %v", key, err)
	}
}

// fresh now - timestamp < TTL 视为有效
func (c *LayeredCache) fresh(createdAt time.Time, ttl time.Duration) bool {
	return c.now().Sub(createdAt) < ttl
}
