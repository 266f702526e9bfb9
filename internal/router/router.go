package router

import (
	"github.com/gin-gonic/gin"
	"github.com/user/cinechat/internal/handler"
	"github.com/user/cinechat/internal/middleware"
)

// RegisterRoutes 注册全部路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(h.Config.AppSecret))
	{
		api.POST("/auth/device", h.DeviceAuth)
		api.POST("/chat", h.Chat)

		movies := api.Group("/movies")
		{
			movies.GET("/popular", h.PopularMovies)
			movies.GET("/top/:service", h.TopMoviesByService)
			movies.GET("/search", h.SearchMovies)
			movies.GET("/:id", h.MovieDetail)
			movies.GET("/:id/similar", h.SimilarMovies)
		}

		api.GET("/trending", h.Trending)

		// 反馈需要设备令牌
		api.POST("/feedback", middleware.RequireAuth(h.Config.AppSecret), h.CreateFeedback)
		api.GET("/feedback", middleware.RequireAuth(h.Config.AppSecret), h.ListFeedback)
	}
}
