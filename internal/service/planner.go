package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/user/cinechat/internal/config"
	"github.com/user/cinechat/internal/model"
	"github.com/user/cinechat/internal/utils"
)

// 规划器固定参数
const (
	plannerRetries    = 3
	plannerRetryDelay = time.Second
	defaultMovieCount = 3
	planCacheSize     = 200
	planCacheTTL      = 10 * time.Minute
)

// apologyText 模型连续过载时的兜底回复（葡语，带表情，保持端上原有文案）
const apologyText = "O servidor de IA está ocupado no momento. Tente novamente em alguns segundos! 😊"

// plannerPrompt 推荐规划提示词，%s 处填入用户消息
const plannerPrompt = `Você é um especialista em cinema e TV que recomenda filmes E SÉRIES com ALTA PRECISÃO.

REGRAS IMPORTANTES:
1. RESPEITE SEMPRE a quantidade específica que o usuário pedir
2. Se o usuário pedir "1 filme", retorne EXATAMENTE 1 título
3. Se pedir "top 3", "3 filmes", retorne EXATAMENTE 3 títulos
4. Se pedir "top 5", "5 séries", retorne EXATAMENTE 5 títulos
5. Se pedir "top 10", retorne EXATAMENTE 10 títulos
6. Se não especificar quantidade, use 3 como padrão
7. Seja MUITO específico nos termos de busca - use títulos exatos conhecidos
8. Para séries, use títulos como "Breaking Bad", "Stranger Things", "The Office", etc.
9. Se for cumprimento/conversa casual, responda brevemente com needsMovies=false
10. NÃO responda sobre código, programação ou assuntos técnicos complexos
11. Sempre responda em português brasileiro
12. Misture filmes e séries nas recomendações para dar mais variedade

EXEMPLOS DE QUANTIDADE:
- "me recomenda 1 filme de terror" → requestedCount: 1, queries: ["The Conjuring"]
- "top 3 filmes de ação" → requestedCount: 3, queries: ["John Wick", "Mad Max", "The Matrix"]
- "quero 5 séries de comédia" → requestedCount: 5, queries: ["The Office", "Friends", "Brooklyn Nine-Nine", "Parks and Recreation", "How I Met Your Mother"]
- "filme de skate" (sem quantidade) → requestedCount: 3, queries: ["Lords of Dogtown", "Skate Kitchen", "Mid90s"]

EXEMPLOS DE TEMAS:
- "filme de skate" → queries: ["Lords of Dogtown", "Skate Kitchen", "Mid90s", "Rocket Power"]
- "oi" → needsMovies: false, response: "Olá! Como posso ajudar com filmes e séries hoje?"
- "filme de terror" → queries: ["The Conjuring", "Hereditary", "Stranger Things", "American Horror Story"]
- "comédia" → queries: ["The Office", "Friends", "Superbad", "Brooklyn Nine-Nine"]
- "ação" → queries: ["John Wick", "Mad Max", "Breaking Bad", "The Mandalorian"]

Mensagem do usuário: "%s"

Retorne JSON com needsMovies, response, queries (se needsMovies=true) e requestedCount (número exato que o usuário pediu).`

// plannerSchema 结构化输出约束，模型只能按这个形状吐 JSON
var plannerSchema = &utils.GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*utils.GeminiSchema{
		"needsMovies": {
			Type:        "BOOLEAN",
			Description: "True if the user is asking for movie recommendations, false otherwise",
		},
		"response": {
			Type:        "STRING",
			Description: "A friendly response to the user in Portuguese",
		},
		"queries": {
			Type:        "ARRAY",
			Description: "Specific movie titles or very precise search terms (only if needsMovies is true)",
			Items:       &utils.GeminiSchema{Type: "STRING"},
		},
		"requestedCount": {
			Type:        "NUMBER",
			Description: "Number of movies/series the user specifically requested (1, 3, 5, 10, etc). Default to 3 if not specified.",
		},
	},
	Required: []string{"needsMovies", "response"},
}

// plannerResult 模型结构化输出的落点
type plannerResult struct {
	NeedsMovies    bool     `json:"needsMovies"`
	Response       string   `json:"response"`
	Queries        []string `json:"queries"`
	RequestedCount int      `json:"requestedCount"`
}

// titleSearcher 规划器只需要目录的标题搜索能力
type titleSearcher interface {
	SearchByTitle(ctx context.Context, query string) []model.Movie
}

// PlannerService 把自然语言请求规划成回复文本 + 片单
type PlannerService struct {
	apiKey     string
	model      string
	catalog    titleSearcher
	memo       *utils.PlanCache[model.ChatReply]
	retryDelay time.Duration
}

// NewPlannerService 创建规划器
func NewPlannerService(cfg *config.Config, catalog titleSearcher) *PlannerService {
	return &PlannerService{
		apiKey:     cfg.GeminiAPIKey,
		model:      cfg.GeminiModel,
		catalog:    catalog,
		memo:       utils.NewPlanCache[model.ChatReply](planCacheSize, planCacheTTL),
		retryDelay: plannerRetryDelay,
	}
}

// Plan 完整一轮规划：调模型出计划，再到目录解析成真实片单
// 只有过载错误才重试，重试耗尽或其他错误一律返回道歉文案，不向上抛错
func (p *PlannerService) Plan(ctx context.Context, message string) model.ChatReply {
	memoKey := strings.ToLower(strings.TrimSpace(message))
	if cached, ok := p.memo.Get(memoKey); ok {
		return cached
	}

	var reply model.ChatReply
	err := utils.Retry(plannerRetries, p.retryDelay, func(err error) bool {
		return errors.Is(err, utils.ErrModelOverloaded)
	}, func() error {
		prompt := fmt.Sprintf(plannerPrompt, message)
		text, err := utils.GenerateStructured(p.apiKey, p.model, prompt, plannerSchema)
		if err != nil {
			return err
		}

		var plan plannerResult
		if err := json.Unmarshal([]byte(text), &plan); err != nil {
			return fmt.Errorf("解析规划结果失败: %w", err)
		}

		reply = p.resolve(ctx, &plan)
		return nil
	})
	if err != nil {
		log.Printf("[Planner] 规划失败 (%s): %v", message, err)
		return model.ChatReply{Text: apologyText, Movies: []model.Movie{}}
	}

	// 失败回复不落缓存，避免把道歉文案钉住
	p.memo.Set(memoKey, reply)
	return reply
}

// resolve 把模型给的搜索词换成目录里的真实条目
// 数量契约：结果要么恰好 requestedCount 条，要么是解析后所剩的全部
func (p *PlannerService) resolve(ctx context.Context, plan *plannerResult) model.ChatReply {
	if !plan.NeedsMovies || len(plan.Queries) == 0 {
		text := plan.Response
		if text == "" {
			text = "Como posso ajudar você com filmes hoje?"
		}
		return model.ChatReply{Text: text, Movies: []model.Movie{}}
	}

	count := plan.RequestedCount
	if count <= 0 {
		count = defaultMovieCount
	}

	// 超采：搜索词取 count*2 个，给无海报/重复条目留替补空间
	queries := plan.Queries
	if len(queries) > count*2 {
		queries = queries[:count*2]
	}

	// 并发搜索，每个词只取首条命中
	candidates := make([]*model.Movie, len(queries))
	var wg sync.WaitGroup
	for i := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			if hits := p.catalog.SearchByTitle(ctx, query); len(hits) > 0 {
				candidates[i] = &hits[0]
			}
		}(i, queries[i])
	}
	wg.Wait()

	// 过滤无海报条目，按 ID 和标题双重去重，截断到精确数量
	seenID := make(map[string]bool, count)
	seenTitle := make(map[string]bool, count)
	movies := make([]model.Movie, 0, count)
	for _, m := range candidates {
		if m == nil || m.ImageURL == "" {
			continue
		}
		titleKey := strings.ToLower(m.Title)
		if seenID[m.ID] || seenTitle[titleKey] {
			continue
		}
		seenID[m.ID] = true
		seenTitle[titleKey] = true
		movies = append(movies, *m)
		if len(movies) == count {
			break
		}
	}

	text := plan.Response
	if text == "" {
		text = "Aqui estão suas recomendações:"
	}
	return model.ChatReply{Text: text, Movies: movies}
}
