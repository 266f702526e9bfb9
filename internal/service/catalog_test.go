package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinechat/internal/utils"
)

// newTestCatalog 用 httptest 假上游构造目录客户端
func newTestCatalog(t *testing.T, handler http.Handler) *CatalogService {
	t.Helper()
	utils.InitCache()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &CatalogService{
		client:    utils.NewHTTPClient(map[string]string{"X-RapidAPI-Key": "test"}),
		cache:     NewLayeredCache(nil),
		baseURL:   server.URL,
		detailTTL: 24 * time.Hour,
		listTTL:   time.Hour,
	}
}

func showJSON(id, title string, poster string) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"imdbId":      id,
		"title":       title,
		"releaseYear": 2010,
		"overview":    "...",
		"rating":      8.0,
		"imageSet": map[string]interface{}{
			"verticalPoster": map[string]interface{}{"w480": poster},
		},
	}
}

func TestGetByIDCachesResult(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(showJSON("tt1375666", "Inception", "https://img/inception.jpg"))
	})
	catalog := newTestCatalog(t, handler)

	first := catalog.GetByID(context.Background(), "tt1375666")
	require.NotNil(t, first)
	assert.Equal(t, "Inception", first.Title)

	second := catalog.GetByID(context.Background(), "tt1375666")
	require.NotNil(t, second)

	// 第二次应命中缓存，不再回源
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetByIDDegradesToNil(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	catalog := newTestCatalog(t, handler)

	assert.Nil(t, catalog.GetByID(context.Background(), "tt0000001"))
}

func TestSearchByTitleResolvesTopHits(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/shows/search/title"):
			// 返回 4 条命中，只有前 3 条会被补全
			json.NewEncoder(w).Encode([]map[string]interface{}{
				showJSON("tt1", "A", ""), showJSON("tt2", "B", ""),
				showJSON("tt3", "C", ""), showJSON("tt4", "D", ""),
			})
		case r.URL.Path == "/shows/tt2":
			// 单条详情失败，该条目应被跳过
			w.WriteHeader(http.StatusInternalServerError)
		default:
			id := strings.TrimPrefix(r.URL.Path, "/shows/")
			json.NewEncoder(w).Encode(showJSON(id, "Movie "+id, "https://img/"+id+".jpg"))
		}
	})
	catalog := newTestCatalog(t, handler)

	movies := catalog.SearchByTitle(context.Background(), "matrix")
	require.Len(t, movies, 2)
	ids := []string{movies[0].ID, movies[1].ID}
	assert.Equal(t, []string{"tt1", "tt3"}, ids)
}

func TestSearchByTitleDegradesToEmpty(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	catalog := newTestCatalog(t, handler)

	movies := catalog.SearchByTitle(context.Background(), "matrix")
	require.NotNil(t, movies)
	assert.Empty(t, movies)
}

func TestListPopularForceRefresh(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		shows := make([]map[string]interface{}, 0, 12)
		for i := 0; i < 12; i++ {
			id := fmt.Sprintf("tt%d", i)
			shows = append(shows, showJSON(id, "Movie "+id, "https://img/p.jpg"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"shows": shows})
	})
	catalog := newTestCatalog(t, handler)

	movies := catalog.ListPopular(context.Background(), false)
	assert.Len(t, movies, 10, "榜单最多返回 10 条")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// 命中缓存
	catalog.ListPopular(context.Background(), false)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// 强制刷新跳过缓存读取
	catalog.ListPopular(context.Background(), true)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListTopByServicePassesServiceParam(t *testing.T) {
	var gotService string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotService = r.URL.Query().Get("service")
		json.NewEncoder(w).Encode(map[string]interface{}{"shows": []interface{}{}})
	})
	catalog := newTestCatalog(t, handler)

	catalog.ListTopByService(context.Background(), "netflix", false)
	assert.Equal(t, "netflix", gotService)
}

func TestParseMovieFieldRules(t *testing.T) {
	raw := &rawShow{
		ID:          "123",
		ImdbID:      "tt0137523",
		Title:       "Fight Club",
		ReleaseYear: 1999,
		Rating:      8.8,
		Directors:   []string{"David Fincher", "Alguém"},
		Cast:        []string{"a", "b", "c", "d", "e", "f", "g"},
	}
	raw.ImageSet.VerticalPoster.W360 = "https://img/w360.jpg"

	m := parseMovie(raw)
	assert.Equal(t, "tt0137523", m.ID, "imdbId 优先于内部 id")
	assert.Equal(t, 1999, m.Year)
	assert.Equal(t, 1999, m.ReleaseYear)
	assert.Equal(t, "https://img/w360.jpg", m.ImageURL, "w480 缺失时退 w360")
	assert.Equal(t, "David Fincher", m.Director)
	assert.Equal(t, "a, b, c, d, e", m.Actors, "主演只留前 5 位")
	assert.Empty(t, m.Awards)
	assert.NotNil(t, m.StreamingOptions)
}

func TestParseMovieGeneratesFallbackID(t *testing.T) {
	m := parseMovie(&rawShow{Title: "Sem ID"})
	assert.NotEmpty(t, m.ID)
}

func TestParseStreamingOptions(t *testing.T) {
	newOption := func(name, typ string) rawStreamingOption {
		o := rawStreamingOption{Type: typ, Link: "https://watch/" + name}
		o.Service.Name = name
		return o
	}

	all := map[string][]rawStreamingOption{
		"br": {
			newOption("Netflix", "subscription"),
			newOption("", "subscription"),     // 无名渠道丢弃
			newOption("Desconhecido", "rent"), // 哨兵名丢弃
			newOption("Apple TV", "rent"),
			newOption("Netflix", "subscription"), // (name, type) 重复丢弃
		},
		"us": {
			newOption("Netflix", "subscription"), // 与 br 重复丢弃
			newOption("Netflix", "buy"),          // 同名不同类型保留
			newOption("Pluto TV", "free"),
			newOption("Peacock", "addon"), // 未知类型归 Disponível
		},
	}

	options := parseStreamingOptions(all)
	require.Len(t, options, 5)

	types := map[string]string{}
	for _, o := range options {
		types[o.Name+"/"+o.Type] = o.Link
	}
	assert.Contains(t, types, "Netflix/Streaming")
	assert.Contains(t, types, "Apple TV/Aluguel")
	assert.Contains(t, types, "Netflix/Compra")
	assert.Contains(t, types, "Pluto TV/Grátis")
	assert.Contains(t, types, "Peacock/Disponível")

	// br 区域条目在前
	assert.Equal(t, "Netflix", options[0].Name)
	assert.Equal(t, "Streaming", options[0].Type)
}

func TestParseStreamingOptionsEmpty(t *testing.T) {
	options := parseStreamingOptions(nil)
	require.NotNil(t, options)
	assert.Empty(t, options)
}
