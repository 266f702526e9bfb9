package service

import (
	"fmt"
	"log"
	"time"

	"github.com/user/cinechat/internal/model"
	"github.com/user/cinechat/internal/repository"
	"github.com/user/cinechat/internal/utils"
)

// similarCacheTTL 相似推荐结果的内存缓存时长
const similarCacheTTL = 30 * time.Minute

// SimilarMovie 带推荐理由的相似电影
type SimilarMovie struct {
	Movie  model.StoredMovie `json:"movie"`
	Reason string            `json:"reason"`
}

// SimilarService 基于向量相似度的"看过这部也会喜欢"推荐
// 数据来源是聊天链路异步落库的电影快照，没推荐过的片子查不到属正常
type SimilarService struct {
	movies *repository.MovieRepository
}

// NewSimilarService 创建相似推荐服务
func NewSimilarService(movies *repository.MovieRepository) *SimilarService {
	return &SimilarService{movies: movies}
}

// FindSimilar 查找相似电影并附推荐理由
func (s *SimilarService) FindSimilar(externalID string, limit int) ([]SimilarMovie, error) {
	cacheKey := fmt.Sprintf("similar_%s_%d", externalID, limit)
	if cached, ok := utils.CacheGet(cacheKey); ok {
		return cached.([]SimilarMovie), nil
	}

	source, err := s.movies.FindByExternalID(externalID)
	if err != nil {
		return nil, fmt.Errorf("查询源电影失败: %w", err)
	}
	if source == nil {
		return nil, nil
	}

	similar, err := s.movies.FindSimilar(externalID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询相似电影失败: %w", err)
	}

	result := make([]SimilarMovie, 0, len(similar))
	for _, m := range similar {
		result = append(result, SimilarMovie{
			Movie:  m,
			Reason: buildReason(source, &m),
		})
	}

	utils.CacheSet(cacheKey, result, similarCacheTTL)
	log.Printf("[Similar] 相似推荐 %s 命中 %d 条", externalID, len(result))
	return result, nil
}

// buildReason 生成葡语推荐理由，优先级：同类型 > 同导演 > 高分 > 通用
func buildReason(source, target *model.StoredMovie) string {
	if genre := firstCommonGenre(source.Genres, target.Genres); genre != "" {
		return fmt.Sprintf("Também é um ótimo filme de %s", genre)
	}
	if source.Director != "" && source.Director == target.Director {
		return fmt.Sprintf("Do mesmo diretor, %s", target.Director)
	}
	if target.Rating >= 7.5 {
		return fmt.Sprintf("Muito bem avaliado (nota %.1f)", target.Rating)
	}
	return "Quem gostou desse filme também curtiu este"
}

func firstCommonGenre(source, target []string) string {
	for _, sg := range source {
		for _, tg := range target {
			if sg != "" && sg == tg {
				return sg
			}
		}
	}
	return ""
}
