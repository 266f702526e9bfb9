package service

import (
	"context"
	"strings"

	"github.com/user/cinechat/internal/model"
)

// fallbackContext 未命中任何主题关键词时的兜底主题
const fallbackContext = "geral"

// moreResultsLimit 追问一次最多补几条
const moreResultsLimit = 3

// contextEntry 主题关键词映射，顺序敏感：首个命中即返回
type contextEntry struct {
	context  string
	keywords []string
}

// contextTable 主题识别表，关键词混葡英双语
// 顺序敏感的两处：animação 必须排在 ação 之前（子串误判），
// ficção espacial 必须排在 ficção científica 之前（共享 "ficção"）
var contextTable = []contextEntry{
	{"terror", []string{"terror", "horror", "assombra", "medo", "scary"}},
	{"comédia", []string{"comédia", "comedia", "engraçad", "comedy", "rir"}},
	{"animação", []string{"animação", "animacao", "anime", "desenho", "animation"}},
	{"ação", []string{"ação", "acao", "action", "luta", "pancadaria"}},
	{"romance", []string{"romance", "romântic", "romantic", "amor"}},
	{"drama", []string{"drama", "dramátic", "emocionante"}},
	{"super-heróis", []string{"super-herói", "super-heroi", "superheroi", "superhero", "herói", "heroi", "marvel"}},
	{"ficção espacial", []string{"espacial", "espaço", "espaco", "space", "astronauta"}},
	{"ficção científica", []string{"ficção", "ficcao", "sci-fi", "scifi", "futurista"}},
	{"thriller", []string{"thriller", "suspense", "tensão", "tensao"}},
	{"mistério", []string{"mistério", "misterio", "mystery", "enigma", "detetive"}},
	{"fantasia", []string{"fantasia", "fantasy", "magia", "mágic"}},
	{"documentário", []string{"documentário", "documentario", "documentary"}},
}

// followUpHints 追问信号词；必须同时出现 "mais" 和其中之一
var followUpHints = []string{"mais", "3", "2", "alguns", "outros"}

// contextFallbackQueries 每个主题的保底片单，追问时从里面挑没推荐过的
var contextFallbackQueries = map[string][]string{
	"terror":            {"The Conjuring", "Hereditary", "It", "The Exorcist", "A Quiet Place", "Insidious"},
	"comédia":           {"Superbad", "The Hangover", "Step Brothers", "Anchorman", "Bridesmaids", "21 Jump Street"},
	"animação":          {"Spirited Away", "Coco", "Up", "Toy Story", "How to Train Your Dragon", "Zootopia"},
	"ação":              {"John Wick", "Mad Max: Fury Road", "The Matrix", "Die Hard", "Mission: Impossible", "Gladiator"},
	"romance":           {"The Notebook", "La La Land", "Pride and Prejudice", "About Time", "Notting Hill", "Before Sunrise"},
	"drama":             {"The Shawshank Redemption", "Forrest Gump", "Whiplash", "The Pursuit of Happyness", "Good Will Hunting", "A Beautiful Mind"},
	"super-heróis":      {"The Dark Knight", "Spider-Man: Into the Spider-Verse", "The Avengers", "Logan", "Wonder Woman", "Guardians of the Galaxy"},
	"ficção espacial":   {"Interstellar", "Gravity", "The Martian", "Apollo 13", "Moon", "Ad Astra"},
	"ficção científica": {"Blade Runner 2049", "Arrival", "Inception", "Dune", "Ex Machina", "Minority Report"},
	"thriller":          {"Gone Girl", "Se7en", "Prisoners", "Shutter Island", "Zodiac", "Nightcrawler"},
	"mistério":          {"Knives Out", "Murder on the Orient Express", "The Prestige", "Memento", "The Girl with the Dragon Tattoo", "Sherlock Holmes"},
	"fantasia":          {"The Lord of the Rings", "Harry Potter", "Pan's Labyrinth", "The Chronicles of Narnia", "Stardust", "The Princess Bride"},
	"documentário":      {"Free Solo", "The Social Dilemma", "13th", "Won't You Be My Neighbor", "My Octopus Teacher", "Icarus"},
}

// genericFallbackQueries 主题为 geral 时的保底片单
var genericFallbackQueries = []string{
	"The Shawshank Redemption", "Inception", "The Dark Knight",
	"Forrest Gump", "Pulp Fiction", "Interstellar",
}

// ConversationService 会话启发式：识别追问、抽取主题、补充推荐
type ConversationService struct {
	catalog titleSearcher
}

// NewConversationService 创建会话服务
func NewConversationService(catalog titleSearcher) *ConversationService {
	return &ConversationService{catalog: catalog}
}

// IsFollowUp 判断是否追问（"quero mais 3"、"mais alguns" 这类）
// 条件：消息含 "mais"，且含任一信号词
func (s *ConversationService) IsFollowUp(message string) bool {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "mais") {
		return false
	}
	for _, hint := range followUpHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// ExtractContext 从消息里抽取主题，未命中返回 geral
func (s *ConversationService) ExtractContext(message string) string {
	lower := strings.ToLower(message)
	for _, entry := range contextTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.context
			}
		}
	}
	return fallbackContext
}

// MoreInContext 在指定主题下补充推荐，跳过已推荐过的标题，最多 3 条
// priorTitles 是本会话里助手已经给过的片名
func (s *ConversationService) MoreInContext(ctx context.Context, topic string, priorTitles []string) []model.Movie {
	queries, ok := contextFallbackQueries[topic]
	if !ok {
		queries = genericFallbackQueries
	}

	seen := make(map[string]bool, len(priorTitles))
	for _, t := range priorTitles {
		seen[strings.ToLower(t)] = true
	}

	movies := make([]model.Movie, 0, moreResultsLimit)
	for _, query := range queries {
		if seen[strings.ToLower(query)] {
			continue
		}
		hits := s.catalog.SearchByTitle(ctx, query)
		if len(hits) == 0 {
			continue
		}
		hit := hits[0]
		if hit.ImageURL == "" || seen[strings.ToLower(hit.Title)] {
			continue
		}
		// 查询词和实际片名都记入已见，防止同片异名重复
		seen[strings.ToLower(query)] = true
		seen[strings.ToLower(hit.Title)] = true
		movies = append(movies, hit)
		if len(movies) == moreResultsLimit {
			break
		}
	}
	return movies
}
