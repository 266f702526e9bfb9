package repository

import (
	"github.com/user/cinechat/internal/model"
	"gorm.io/gorm"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create 创建反馈
func (r *FeedbackRepository) Create(f *model.Feedback) error {
	return r.db.Raw(`
		INSERT INTO feedbacks (device_id, type, content, movie_id, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW())
		RETURNING id
	`, f.DeviceID, f.Type, f.Content, f.MovieID).Row().Scan(&f.ID)
}

// ListByDevice 按设备列出反馈，设备只能看到自己提交的
func (r *FeedbackRepository) ListByDevice(deviceID string, limit, offset int) ([]*model.Feedback, error) {
	var rows []*model.Feedback
	err := r.db.Table("feedbacks").
		Select("id, device_id, type, content, movie_id, status, created_at").
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
