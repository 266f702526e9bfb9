package service

import (
	"log"
	"time"

	"github.com/user/cinechat/internal/repository"
)

// CleanupService 清理服务
type CleanupService struct {
	repos *repository.Repositories
}

// NewCleanupService 创建清理服务
func NewCleanupService(repos *repository.Repositories) *CleanupService {
	return &CleanupService{repos: repos}
}

// Start 启动定时清理任务
func (s *CleanupService) Start() {
	ticker := time.NewTicker(24 * time.Hour)

	// 启动时先运行一次
	go s.runCleanup()

	go func() {
		for range ticker.C {
			s.runCleanup()
		}
	}()
}

func (s *CleanupService) runCleanup() {
	log.Println("[CleanupService] 开始清理过期数据...")

	// 1. 清理超过 48 小时的持久化 API 缓存（远超所有读取侧 TTL）
	affected, err := s.repos.APICache.CleanExpired(48 * time.Hour)
	if err != nil {
		log.Printf("[CleanupService] 清理 API 缓存失败: %v", err)
	} else if affected > 0 {
		log.Printf("[CleanupService] 已清理 %d 条过期 API 缓存", affected)
	}

	// 2. 清理超过 30 天的搜索日志
	cleanedLogs, err := s.repos.SearchLog.DeleteOldLogs(30)
	if err != nil {
		log.Printf("[CleanupService] 清理搜索日志失败: %v", err)
	} else if cleanedLogs > 0 {
		log.Printf("[CleanupService] 已清理 %d 条超过 30 天的搜索日志", cleanedLogs)
	}

	// 3. 清理超过 30 天未搜索的热搜关键词
	cleanedKeywords, err := s.repos.SearchLog.DeleteOldKeywords(30)
	if err != nil {
		log.Printf("[CleanupService] 清理旧热搜关键词失败: %v", err)
	} else if cleanedKeywords > 0 {
		log.Printf("[CleanupService] 已清理 %d 条超过 30 天未搜索的热搜关键词", cleanedKeywords)
	}
}
