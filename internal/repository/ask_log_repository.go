package repository

import (
	"context"

	"edi-assistant-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AskLogRepository 定义了对 ask_logs 表的数据操作接口。
type AskLogRepository interface {
	// Create 写入一条记录；request_id 已存在时忽略，保证重复消费幂等。
	Create(ctx context.Context, entry *model.AskLog) error
}

type askLogRepository struct {
	db *gorm.DB
}

// NewAskLogRepository 创建一个新的 AskLogRepository 实例。
func NewAskLogRepository(db *gorm.DB) AskLogRepository {
	return &askLogRepository{db: db}
}

func (r *askLogRepository) Create(ctx context.Context, entry *model.AskLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "request_id"}}, DoNothing: true}).
		Create(entry).Error
}
