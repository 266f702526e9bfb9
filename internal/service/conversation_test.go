package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinechat/internal/model"
)

func TestIsFollowUp(t *testing.T) {
	s := NewConversationService(nil)

	cases := []struct {
		message string
		want    bool
	}{
		{"quero mais 3", true},
		{"me dá mais alguns", true},
		{"mais outros, por favor", true},
		{"MAIS 2", true},
		{"mais", true}, // "mais" 本身就是信号词之一
		{"me recomenda 3 filmes", false},
		{"outros filmes", false}, // 缺少 "mais"
		{"filme de terror", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.IsFollowUp(tc.message), "message: %q", tc.message)
	}
}

func TestExtractContext(t *testing.T) {
	s := NewConversationService(nil)

	cases := []struct {
		message string
		want    string
	}{
		{"me recomenda um filme de terror", "terror"},
		{"quero rir muito hoje", "comédia"},
		{"algum anime bom?", "animação"},
		{"filme de animação", "animação"}, // 不能被 "ação" 抢先
		{"filme de ação", "ação"},
		{"sci-fi alucinante", "ficção científica"},
		{"ficção espacial com astronautas", "ficção espacial"}, // 不能被 "ficção" 抢先
		{"THRILLER psicológico", "thriller"},
		{"mistério de detetive", "mistério"},
		{"filme da marvel", "super-heróis"},
		{"filme bom", "geral"},
		{"", "geral"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.ExtractContext(tc.message), "message: %q", tc.message)
	}
}

func TestMoreInContextSkipsSeenTitles(t *testing.T) {
	catalog := &fakeCatalog{movies: map[string][]model.Movie{}}
	for _, title := range contextFallbackQueries["terror"] {
		catalog.movies[title] = []model.Movie{posterMovie("tt_"+title, title)}
	}
	s := NewConversationService(catalog)

	movies := s.MoreInContext(context.Background(), "terror", []string{"the conjuring", "It"})
	require.Len(t, movies, 3, "追问一次最多补 3 条")

	for _, m := range movies {
		assert.NotEqual(t, "The Conjuring", m.Title, "已推荐过的标题不应重复（忽略大小写）")
		assert.NotEqual(t, "It", m.Title)
	}
	assert.Equal(t, "Hereditary", movies[0].Title)
}

func TestMoreInContextUnknownContextFallsBack(t *testing.T) {
	catalog := &fakeCatalog{movies: map[string][]model.Movie{
		"Inception": {posterMovie("tt1375666", "Inception")},
	}}
	s := NewConversationService(catalog)

	movies := s.MoreInContext(context.Background(), "geral", nil)
	require.Len(t, movies, 1)
	assert.Equal(t, "Inception", movies[0].Title)
}

func TestMoreInContextSkipsUnresolvedAndPosterless(t *testing.T) {
	catalog := &fakeCatalog{movies: map[string][]model.Movie{
		"The Conjuring": {{ID: "tt1", Title: "The Conjuring"}}, // 无海报
		"Hereditary":    {posterMovie("tt2", "Hereditary")},
	}}
	s := NewConversationService(catalog)

	movies := s.MoreInContext(context.Background(), "terror", nil)
	require.Len(t, movies, 1)
	assert.Equal(t, "Hereditary", movies[0].Title)
}

func TestScanHistory(t *testing.T) {
	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "filme de terror"},
		{Role: model.RoleAssistant, Context: "terror", MovieTitles: []string{"It"}},
		{Role: model.RoleUser, Content: "quero mais"},
		{Role: model.RoleAssistant, Context: "comédia", MovieTitles: []string{"Superbad"}},
		{Role: model.RoleUser, Content: "e agora?"},
	}

	lastContext, titles := scanHistory(history)
	assert.Equal(t, "comédia", lastContext, "应取最近一条带主题的助手消息")
	assert.ElementsMatch(t, []string{"It", "Superbad"}, titles)
}

func TestScanHistoryEmpty(t *testing.T) {
	lastContext, titles := scanHistory(nil)
	assert.Empty(t, lastContext)
	assert.Empty(t, titles)
}
