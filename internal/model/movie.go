package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Movie 电影/剧集实体（流媒体目录 API 归一化后的扁平结构）
// 数值字段为 0、字符串字段为空均表示"未知"，消费端不应展示
type Movie struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Year             int               `json:"year"`
	ReleaseYear      int               `json:"releaseYear"`
	ImageURL         string            `json:"imageUrl"`
	Overview         string            `json:"overview"`
	Genres           []string          `json:"genres"`
	Rating           float64           `json:"rating"`
	Runtime          int               `json:"runtime"` // 分钟
	Director         string            `json:"director"`
	Actors           string            `json:"actors"` // 前 5 位主演，逗号分隔
	Awards           string            `json:"awards"` // 目录 API 不提供该字段，恒为空
	StreamingOptions []StreamingOption `json:"streamingOptions"`
}

// StreamingOption 单个观看渠道
// 同一部电影内 (Name, Type) 组合唯一，归一化时去重
type StreamingOption struct {
	Name string `json:"name"`
	Link string `json:"link"`
	Type string `json:"type"` // Streaming / Aluguel / Compra / Grátis / Disponível
	Logo string `json:"logo,omitempty"`
}

// StoredMovie 落库的电影快照（相似推荐用，不在聊天主链路上）
type StoredMovie struct {
	ID               int              `json:"id" db:"id"`
	ExternalID       string           `json:"external_id" db:"external_id" gorm:"unique"`
	Title            string           `json:"title" db:"title"`
	Year             int              `json:"year" db:"year"`
	Poster           string           `json:"poster" db:"poster"`
	Rating           float64          `json:"rating" db:"rating" gorm:"index"`
	Genres           []string         `json:"genres" db:"genres"`
	Director         string           `json:"director" db:"director"`
	Actors           string           `json:"actors" db:"actors"`
	Overview         string           `json:"overview" db:"overview"`
	EmbeddingContent string           `json:"embedding_content" db:"embedding_content"`
	Embedding        *pgvector.Vector `json:"-" db:"embedding" gorm:"type:vector(768)"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at" gorm:"index"`
}
