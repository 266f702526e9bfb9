package handler

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/cinechat/internal/config"
	"github.com/user/cinechat/internal/repository"
	"github.com/user/cinechat/internal/service"
	"github.com/user/cinechat/internal/utils"
)

// allowedServices 支持的平台榜单
var allowedServices = map[string]bool{
	"netflix": true,
	"prime":   true,
	"disney":  true,
	"hbo":     true,
	"apple":   true,
}

var registerValidatorsOnce sync.Once

// registerValidators 注册自定义校验规则
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterValidation("streamingservice", func(fl validator.FieldLevel) bool {
				return allowedServices[strings.ToLower(fl.Field().String())]
			})
		}
	})
}

// Handler HTTP 处理器
type Handler struct {
	Repos       *repository.Repositories
	Config      *config.Config
	Catalog     *service.CatalogService
	ChatService *service.ChatService
	Similar     *service.SimilarService
}

// NewHandler 创建处理器并完成服务装配
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	registerValidators()

	// 两级缓存：内存 + 数据库
	var cacheRepo *repository.APICacheRepository
	if repos != nil {
		cacheRepo = repos.APICache
	}
	cache := service.NewLayeredCache(cacheRepo)

	catalog := service.NewCatalogService(cfg, cache)
	planner := service.NewPlannerService(cfg, catalog)
	conversation := service.NewConversationService(catalog)
	chat := service.NewChatService(cfg, planner, conversation, repos)

	var similar *service.SimilarService
	if repos != nil {
		similar = service.NewSimilarService(repos.Movie)
	}

	return &Handler{
		Repos:       repos,
		Config:      cfg,
		Catalog:     catalog,
		ChatService: chat,
		Similar:     similar,
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	dbStatus := "disabled"
	if h.Repos != nil {
		dbStatus = "ok"
		if sqlDB, err := h.Repos.DB.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "down"
		}
	}
	utils.Success(c, gin.H{"status": "ok", "database": dbStatus})
}
