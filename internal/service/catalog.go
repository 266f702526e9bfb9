package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/cinechat/internal/config"
	"github.com/user/cinechat/internal/model"
	"github.com/user/cinechat/internal/utils"
	"golang.org/x/sync/singleflight"
)

// 目录 API 固定查询参数：巴西区、仅电影、英文返回
const (
	catalogCountry  = "br"
	catalogShowType = "movie"
	catalogLanguage = "en"

	searchResultLimit = 3  // 标题搜索取前 3 条再补全详情
	listResultLimit   = 10 // 榜单直接映射前 10 条
)

// unknownProviderName 上游用它标记无名渠道，归一化时整条丢弃
const unknownProviderName = "Desconhecido"

// CatalogService 流媒体目录客户端
// 错误处理约定：任何传输/解析失败都退化为空结果并记日志，绝不向调用方抛错
type CatalogService struct {
	client    *utils.HTTPClient
	cache     CacheStore
	baseURL   string
	detailTTL time.Duration
	listTTL   time.Duration
	sf        singleflight.Group
}

// NewCatalogService 创建目录客户端
func NewCatalogService(cfg *config.Config, cache CacheStore) *CatalogService {
	return &CatalogService{
		client: utils.NewHTTPClient(map[string]string{
			"X-RapidAPI-Key":  cfg.RapidAPIKey,
			"X-RapidAPI-Host": cfg.RapidAPIHost,
		}),
		cache:     cache,
		baseURL:   "https://" + cfg.RapidAPIHost,
		detailTTL: cfg.DetailCacheTTL,
		listTTL:   cfg.ListCacheTTL,
	}
}

// ==================== 原始响应结构（节选自目录 API 的 show 对象）====================

type rawShow struct {
	ID          string  `json:"id"`
	ImdbID      string  `json:"imdbId"`
	Title       string  `json:"title"`
	ReleaseYear int     `json:"releaseYear"`
	Overview    string  `json:"overview"`
	Rating      float64 `json:"rating"`
	Runtime     int     `json:"runtime"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Directors []string `json:"directors"`
	Cast      []string `json:"cast"`
	ImageSet  struct {
		VerticalPoster struct {
			W480 string `json:"w480"`
			W360 string `json:"w360"`
		} `json:"verticalPoster"`
	} `json:"imageSet"`
	StreamingOptions map[string][]rawStreamingOption `json:"streamingOptions"`
}

type rawStreamingOption struct {
	Type    string `json:"type"`
	Link    string `json:"link"`
	Service struct {
		Name     string `json:"name"`
		ImageSet struct {
			LightThemeImage string `json:"lightThemeImage"`
			WhiteImage      string `json:"whiteImage"`
			DarkThemeImage  string `json:"darkThemeImage"`
		} `json:"imageSet"`
	} `json:"service"`
}

type rawFilterResponse struct {
	Shows []rawShow `json:"shows"`
}

// ==================== 操作 ====================

// SearchByTitle 标题搜索：取前 3 条命中，并发补全详情，失败的条目直接跳过
// 部分成功就是成功；整体失败返回空列表
func (s *CatalogService) SearchByTitle(ctx context.Context, query string) []model.Movie {
	cacheKey := fmt.Sprintf("search_%s", query)

	var cached []model.Movie
	if s.cache.Get(cacheKey, s.detailTTL, &cached) {
		return cached
	}

	// singleflight 防止并发轮次重复打同一个搜索词
	v, _, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		return s.fetchSearch(ctx, cacheKey, query), nil
	})
	return v.([]model.Movie)
}

func (s *CatalogService) fetchSearch(ctx context.Context, cacheKey, query string) []model.Movie {
	endpoint := fmt.Sprintf("%s/shows/search/title?title=%s&country=%s&show_type=%s&output_language=%s",
		s.baseURL, url.QueryEscape(query), catalogCountry, catalogShowType, catalogLanguage)

	var hits []rawShow
	if err := s.client.GetJSON(ctx, endpoint, &hits); err != nil {
		log.Printf("[Catalog] 标题搜索失败 (%s): %v", query, err)
		return []model.Movie{}
	}

	if len(hits) > searchResultLimit {
		hits = hits[:searchResultLimit]
	}

	// 并发补全详情
	resolved := make([]*model.Movie, len(hits))
	var wg sync.WaitGroup
	for i := range hits {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			resolved[i] = s.GetByID(ctx, id)
		}(i, hits[i].ID)
	}
	wg.Wait()

	movies := make([]model.Movie, 0, len(hits))
	for _, m := range resolved {
		if m != nil {
			movies = append(movies, *m)
		}
	}

	s.cache.Set(cacheKey, movies)
	return movies
}

// GetByID 详情查询，失败返回 nil（调用方跳过该条目即可）
func (s *CatalogService) GetByID(ctx context.Context, id string) *model.Movie {
	cacheKey := fmt.Sprintf("movie_%s", id)

	var cached model.Movie
	if s.cache.Get(cacheKey, s.detailTTL, &cached) {
		return &cached
	}

	v, _, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/shows/%s?output_language=%s", s.baseURL, url.PathEscape(id), catalogLanguage)

		var raw rawShow
		if err := s.client.GetJSON(ctx, endpoint, &raw); err != nil {
			log.Printf("[Catalog] 详情查询失败 (%s): %v", id, err)
			return (*model.Movie)(nil), nil
		}

		movie := parseMovie(&raw)
		s.cache.Set(cacheKey, movie)
		return &movie, nil
	})
	return v.(*model.Movie)
}

// ListPopular 周榜热门（前 10），forceRefresh 跳过缓存读取但仍写入新值
func (s *CatalogService) ListPopular(ctx context.Context, forceRefresh bool) []model.Movie {
	return s.listFiltered(ctx, "popular_movies", "", forceRefresh)
}

// ListTopByService 指定平台的周榜热门
func (s *CatalogService) ListTopByService(ctx context.Context, service string, forceRefresh bool) []model.Movie {
	return s.listFiltered(ctx, fmt.Sprintf("top_movies_%s", service), service, forceRefresh)
}

func (s *CatalogService) listFiltered(ctx context.Context, cacheKey, service string, forceRefresh bool) []model.Movie {
	if !forceRefresh {
		var cached []model.Movie
		if s.cache.Get(cacheKey, s.listTTL, &cached) {
			return cached
		}
	}

	v, _, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/shows/search/filters?country=%s&show_type=%s&order_by=popularity_1week&desc=true&output_language=%s",
			s.baseURL, catalogCountry, catalogShowType, catalogLanguage)
		if service != "" {
			endpoint += "&service=" + url.QueryEscape(service)
		}

		var resp rawFilterResponse
		if err := s.client.GetJSON(ctx, endpoint, &resp); err != nil {
			log.Printf("[Catalog] 榜单查询失败 (%s): %v", cacheKey, err)
			return []model.Movie{}, nil
		}

		shows := resp.Shows
		if len(shows) > listResultLimit {
			shows = shows[:listResultLimit]
		}

		// 榜单响应直接映射，不再逐条取详情，字段有多少用多少
		movies := make([]model.Movie, 0, len(shows))
		for i := range shows {
			movies = append(movies, parseMovie(&shows[i]))
		}

		s.cache.Set(cacheKey, movies)
		return movies, nil
	})
	return v.([]model.Movie)
}

// ==================== 归一化 ====================

// streamTypeNames 渠道类型的固定译名表，未知类型归入"Disponível"
var streamTypeNames = map[string]string{
	"subscription": "Streaming",
	"rent":         "Aluguel",
	"buy":          "Compra",
	"free":         "Grátis",
}

// parseMovie 把目录 API 的嵌套结构压平成 Movie
func parseMovie(raw *rawShow) model.Movie {
	id := raw.ImdbID
	if id == "" {
		id = raw.ID
	}
	if id == "" {
		// 上游偶发缺失 ID，随机兜底；此时按 id 去重自然不可靠，下游还会按标题去重
		id = uuid.NewString()
	}

	// 海报优先大图，退 360，再退空
	imageURL := raw.ImageSet.VerticalPoster.W480
	if imageURL == "" {
		imageURL = raw.ImageSet.VerticalPoster.W360
	}

	genres := make([]string, 0, len(raw.Genres))
	for _, g := range raw.Genres {
		genres = append(genres, g.Name)
	}

	director := ""
	if len(raw.Directors) > 0 {
		director = raw.Directors[0]
	}

	// 主演只留前 5 位
	cast := raw.Cast
	if len(cast) > 5 {
		cast = cast[:5]
	}

	return model.Movie{
		ID:               id,
		Title:            raw.Title,
		Year:             raw.ReleaseYear,
		ReleaseYear:      raw.ReleaseYear,
		ImageURL:         imageURL,
		Overview:         raw.Overview,
		Genres:           genres,
		Rating:           raw.Rating,
		Runtime:          raw.Runtime,
		Director:         director,
		Actors:           strings.Join(cast, ", "),
		Awards:           "", // 目录 API 不提供奖项信息
		StreamingOptions: parseStreamingOptions(raw.StreamingOptions),
	}
}

// parseStreamingOptions 合并 br、us 两个区域的观看渠道
// 先 br 后 us 拼接，(name, type) 组合首见保留；无名或 "Desconhecido" 渠道丢弃
func parseStreamingOptions(all map[string][]rawStreamingOption) []model.StreamingOption {
	options := make([]model.StreamingOption, 0)
	if all == nil {
		return options
	}

	combined := make([]rawStreamingOption, 0, len(all["br"])+len(all["us"]))
	combined = append(combined, all["br"]...)
	combined = append(combined, all["us"]...)

	seen := make(map[string]bool, len(combined))
	for _, raw := range combined {
		name := raw.Service.Name
		if name == "" || name == unknownProviderName {
			continue
		}

		typ, ok := streamTypeNames[raw.Type]
		if !ok {
			typ = "Disponível"
		}

		key := name + "-" + typ
		if seen[key] {
			continue
		}
		seen[key] = true

		logo := raw.Service.ImageSet.LightThemeImage
		if logo == "" {
			logo = raw.Service.ImageSet.WhiteImage
		}
		if logo == "" {
			logo = raw.Service.ImageSet.DarkThemeImage
		}

		options = append(options, model.StreamingOption{
			Name: name,
			Link: raw.Link,
			Type: typ,
			Logo: logo,
		})
	}

	return options
}
