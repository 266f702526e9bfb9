package handler

import (
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/user/cinechat/internal/middleware"
	"github.com/user/cinechat/internal/model"
	"github.com/user/cinechat/internal/utils"
)

// ChatRequest 聊天请求体，历史由客户端整体回传
type ChatRequest struct {
	Message string              `json:"message" binding:"required"`
	History []model.ChatMessage `json:"history"`
}

// Chat 对话入口
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "message 不能为空")
		return
	}

	// 客户端没带历史时退回 Cookie Session 里的上下文兜底
	history := req.History
	if len(history) == 0 {
		history = historyFromSession(c)
	}

	deviceHash := utils.HashIP(c.ClientIP())
	if deviceID := middleware.GetDeviceID(c); deviceID != "" {
		deviceHash = utils.HashIP(deviceID)
	}

	reply := h.ChatService.ProcessTurn(c.Request.Context(), req.Message, history, deviceHash)

	saveSessionContext(c, reply)
	utils.Success(c, reply)
}

// historyFromSession 把 Session 里的上下文还原成一条最小化的助手历史
func historyFromSession(c *gin.Context) []model.ChatMessage {
	session := sessions.Default(c)
	v := session.Get("chat_context")
	sc, ok := v.(model.SessionContext)
	if !ok || sc.Context == "" {
		return nil
	}
	return []model.ChatMessage{{
		Role:        model.RoleAssistant,
		Context:     sc.Context,
		MovieTitles: sc.SeenTitles,
	}}
}

// saveSessionContext 回写会话上下文，Session 只存主题和已推荐标题
func saveSessionContext(c *gin.Context, reply model.ChatReply) {
	session := sessions.Default(c)

	sc := model.SessionContext{Context: reply.Context}
	if prev, ok := session.Get("chat_context").(model.SessionContext); ok && prev.Context == reply.Context {
		sc.SeenTitles = prev.SeenTitles
	}
	for _, m := range reply.Movies {
		sc.SeenTitles = append(sc.SeenTitles, m.Title)
	}

	session.Set("chat_context", sc)
	if err := session.Save(); err != nil {
		// Session 只是兜底，保存失败不影响响应
		return
	}
}

// DeviceAuthRequest 设备注册请求，device_id 可选（复用已有设备标识）
type DeviceAuthRequest struct {
	DeviceID string `json:"device_id"`
}

// DeviceAuth 匿名设备注册，签发长效令牌
func (h *Handler) DeviceAuth(c *gin.Context) {
	var req DeviceAuthRequest
	_ = c.ShouldBindJSON(&req)

	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	token, err := middleware.GenerateToken(deviceID, h.Config.AppSecret, h.Config.TokenExpiry)
	if err != nil {
		utils.InternalServerError(c, "签发令牌失败")
		return
	}
	utils.Success(c, gin.H{"token": token, "device_id": deviceID})
}

// PopularMovies 周榜热门，?refresh=1 强制刷新
func (h *Handler) PopularMovies(c *gin.Context) {
	force := c.Query("refresh") == "1"
	movies := h.Catalog.ListPopular(c.Request.Context(), force)
	utils.Success(c, movies)
}

// TopMoviesURI 平台榜单路径参数
type TopMoviesURI struct {
	Service string `uri:"service" binding:"required,streamingservice"`
}

// TopMoviesByService 指定平台周榜
func (h *Handler) TopMoviesByService(c *gin.Context) {
	var uri TopMoviesURI
	if err := c.ShouldBindUri(&uri); err != nil {
		utils.BadRequest(c, "不支持的平台")
		return
	}
	force := c.Query("refresh") == "1"
	movies := h.Catalog.ListTopByService(c.Request.Context(), strings.ToLower(uri.Service), force)
	utils.Success(c, movies)
}

// SearchMovies 标题搜索
func (h *Handler) SearchMovies(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.BadRequest(c, "q 不能为空")
		return
	}

	movies := h.Catalog.SearchByTitle(c.Request.Context(), query)

	// 搜索词进热搜统计
	if h.Repos != nil {
		deviceHash := utils.HashIP(c.ClientIP())
		if deviceID := middleware.GetDeviceID(c); deviceID != "" {
			deviceHash = utils.HashIP(deviceID)
		}
		_ = h.Repos.SearchLog.Log(query, deviceHash)
	}

	utils.Success(c, movies)
}

// MovieDetail 电影详情
func (h *Handler) MovieDetail(c *gin.Context) {
	movie := h.Catalog.GetByID(c.Request.Context(), c.Param("id"))
	if movie == nil {
		utils.NotFound(c, "未找到该电影")
		return
	}
	utils.Success(c, movie)
}

// SimilarMovies 相似推荐
func (h *Handler) SimilarMovies(c *gin.Context) {
	if h.Similar == nil {
		utils.Success(c, []interface{}{})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))
	if limit <= 0 || limit > 20 {
		limit = 6
	}

	similar, err := h.Similar.FindSimilar(c.Param("id"), limit)
	if err != nil {
		utils.InternalServerError(c, "查询相似电影失败")
		return
	}
	if similar == nil {
		utils.NotFound(c, "未找到该电影")
		return
	}
	utils.Success(c, similar)
}

// Trending 热搜关键词，?hours= 取实时窗口，缺省取累计榜
func (h *Handler) Trending(c *gin.Context) {
	if h.Repos == nil {
		utils.Success(c, []interface{}{})
		return
	}

	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	keywords, err := h.Repos.SearchLog.GetTrending(hours, limit)
	if err != nil {
		utils.InternalServerError(c, "查询热搜失败")
		return
	}
	utils.Success(c, keywords)
}

// FeedbackRequest 反馈请求体
type FeedbackRequest struct {
	Type    string `json:"type" binding:"required,oneof=bug suggestion content other"`
	Content string `json:"content" binding:"required,max=2000"`
	MovieID string `json:"movie_id"`
}

// CreateFeedback 提交反馈（需认证）
func (h *Handler) CreateFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数不合法")
		return
	}
	if h.Repos == nil {
		utils.InternalServerError(c, "反馈功能未启用")
		return
	}

	feedback := &model.Feedback{
		DeviceID: middleware.GetDeviceID(c),
		Type:     req.Type,
		Content:  req.Content,
		MovieID:  req.MovieID,
		Status:   "pending",
	}
	if err := h.Repos.Feedback.Create(feedback); err != nil {
		utils.InternalServerError(c, "提交反馈失败")
		return
	}
	utils.Success(c, feedback)
}

// ListFeedback 查询本设备提交过的反馈（需认证）
func (h *Handler) ListFeedback(c *gin.Context) {
	if h.Repos == nil {
		utils.Success(c, []*model.Feedback{})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	rows, err := h.Repos.Feedback.ListByDevice(middleware.GetDeviceID(c), limit, offset)
	if err != nil {
		utils.InternalServerError(c, "查询反馈失败")
		return
	}
	utils.Success(c, rows)
}
