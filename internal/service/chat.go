package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinechat/internal/config"
	"github.com/user/cinechat/internal/model"
	"github.com/user/cinechat/internal/repository"
	"github.com/user/cinechat/internal/utils"
)

// ChatService 聊天编排：每轮在"追问补片"和"重新规划"之间二选一
// 服务端不保存会话，历史由客户端随请求回传
type ChatService struct {
	planner      *PlannerService
	conversation *ConversationService
	movies       *repository.MovieRepository
	searchLogs   *repository.SearchLogRepository
	embedder     *utils.EmbeddingClient
}

// NewChatService 创建聊天服务，repos 可为 nil（纯内存模式，跳过落库）
func NewChatService(cfg *config.Config, planner *PlannerService, conversation *ConversationService, repos *repository.Repositories) *ChatService {
	s := &ChatService{planner: planner, conversation: conversation}
	if cfg != nil {
		s.embedder = utils.NewEmbeddingClient(cfg.OllamaHost, cfg.OllamaModel)
	}
	if repos != nil {
		s.movies = repos.Movie
		s.searchLogs = repos.SearchLog
	}
	return s
}

// ProcessTurn 处理一轮对话
// 追问且有上文主题时走保底片单补充，否则走完整规划链路
func (s *ChatService) ProcessTurn(ctx context.Context, message string, history []model.ChatMessage, deviceHash string) model.ChatReply {
	lastContext, seenTitles := scanHistory(history)

	var reply model.ChatReply
	if s.conversation.IsFollowUp(message) && lastContext != "" {
		movies := s.conversation.MoreInContext(ctx, lastContext, seenTitles)
		reply = model.ChatReply{
			Text:     fmt.Sprintf("Aqui vão mais recomendações de %s para você! 🎬", lastContext),
			Movies:   movies,
			Context:  lastContext,
			FollowUp: true,
		}
	} else {
		reply = s.planner.Plan(ctx, message)
		reply.Context = s.conversation.ExtractContext(message)
	}

	s.afterTurn(message, deviceHash, reply.Movies)
	return reply
}

// scanHistory 从历史里取最近一条带主题的助手消息主题，并汇总全部已推荐标题
func scanHistory(history []model.ChatMessage) (string, []string) {
	lastContext := ""
	var titles []string
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != model.RoleAssistant {
			continue
		}
		if lastContext == "" && msg.Context != "" {
			lastContext = msg.Context
		}
		titles = append(titles, msg.MovieTitles...)
	}
	return lastContext, titles
}

// afterTurn 记搜索日志 + 异步落库快照，全部尽力而为，失败不影响回复
func (s *ChatService) afterTurn(message, deviceHash string, movies []model.Movie) {
	if s.searchLogs != nil {
		if err := s.searchLogs.Log(strings.TrimSpace(message), deviceHash); err != nil {
			log.Printf("[Chat] 记录搜索日志失败: %v", err)
		}
	}
	if s.movies != nil && len(movies) > 0 {
		s.persistMoviesAsync(movies)
	}
}

// persistMoviesAsync 后台落库推荐过的电影快照并补嵌入，供相似推荐使用
func (s *ChatService) persistMoviesAsync(movies []model.Movie) {
	snapshot := make([]model.Movie, len(movies))
	copy(snapshot, movies)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Chat] 电影快照落库 panic: %v", r)
			}
		}()
		for i := range snapshot {
			s.persistMovie(&snapshot[i])
		}
	}()
}

func (s *ChatService) persistMovie(m *model.Movie) {
	stored := &model.StoredMovie{
		ExternalID:       m.ID,
		Title:            m.Title,
		Year:             m.Year,
		Poster:           m.ImageURL,
		Rating:           m.Rating,
		Genres:           m.Genres,
		Director:         m.Director,
		Actors:           m.Actors,
		Overview:         m.Overview,
		EmbeddingContent: buildEmbeddingContent(m),
	}

	// 嵌入失败不阻断落库，Upsert 里 COALESCE 会保住旧向量
	if s.embedder != nil {
		if emb, err := s.embedder.Generate(context.Background(), stored.EmbeddingContent); err != nil {
			log.Printf("[Chat] 生成嵌入失败 (%s): %v", m.Title, err)
		} else {
			v := pgvector.NewVector(emb)
			stored.Embedding = &v
		}
	}

	if err := s.movies.Upsert(stored); err != nil {
		log.Printf("[Chat] 电影快照落库失败 (%s): %v", m.Title, err)
	}
}

// buildEmbeddingContent 拼接用于向量化的文本描述
func buildEmbeddingContent(m *model.Movie) string {
	var b strings.Builder
	b.WriteString(m.Title)
	if m.Year > 0 {
		fmt.Fprintf(&b, " (%d)", m.Year)
	}
	if len(m.Genres) > 0 {
		b.WriteString(". Gêneros: ")
		b.WriteString(strings.Join(m.Genres, ", "))
	}
	if m.Director != "" {
		b.WriteString(". Direção: ")
		b.WriteString(m.Director)
	}
	if m.Overview != "" {
		b.WriteString(". ")
		b.WriteString(m.Overview)
	}
	return b.String()
}
