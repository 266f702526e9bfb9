package model

import (
	"time"
)

// 聊天消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 客户端持有的聊天记录条目
// 核心服务不保存任何副本，每轮请求由客户端整体回传
type ChatMessage struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Context     string   `json:"context,omitempty"`      // assistant 消息携带的话题标签
	MovieTitles []string `json:"movie_titles,omitempty"` // assistant 消息推荐过的标题
}

// ChatReply 一轮对话的结果
type ChatReply struct {
	Text     string  `json:"reply"`
	Movies   []Movie `json:"movies"`
	Context  string  `json:"context,omitempty"`
	FollowUp bool    `json:"follow_up"`
}

// SessionContext 写入 Cookie Session 的会话上下文
// 仅作为客户端不回传历史时的兜底，请求里的历史优先
type SessionContext struct {
	Context    string
	SeenTitles []string
}

// APICache 外部 API 响应的持久化缓存条目
// 读取时按调用方给定的 TTL 判断有效性，过期或损坏按未命中处理
type APICache struct {
	CacheKey  string    `json:"cache_key" db:"cache_key" gorm:"primaryKey"`
	Payload   string    `json:"payload" db:"payload"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SearchLog 搜索/推荐查询日志
type SearchLog struct {
	ID         int       `json:"id" db:"id"`
	Keyword    string    `json:"keyword" db:"keyword"`
	DeviceHash string    `json:"device_hash" db:"device_hash"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" gorm:"index"`
}

// TrendingKeyword 热搜关键词
type TrendingKeyword struct {
	Keyword        string    `json:"keyword" db:"keyword" gorm:"primaryKey"`
	Count          int       `json:"count" db:"count"`
	LastSearchedAt time.Time `json:"last_searched_at" db:"last_searched_at"`
}

// Feedback 反馈
type Feedback struct {
	ID        int       `json:"id" db:"id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	Type      string    `json:"type" db:"type"`
	Content   string    `json:"content" db:"content"`
	MovieID   string    `json:"movie_id" db:"movie_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
