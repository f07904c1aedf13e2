package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninja0404/token-tracker/internal/model"
)

// ChangeEventRepo 持仓变化归档
type ChangeEventRepo interface {
	// SaveBatch 批量写入，event_id 重复的忽略
	SaveBatch(ctx context.Context, events []model.ChangeEvent) error

	// ListByWallet 钱包最近的变化，按时间倒序
	ListByWallet(ctx context.Context, wallet string, limit int) ([]model.ChangeEvent, error)

	// AutoMigrate 建表
	AutoMigrate() error
}

type changeEventRepoImpl struct {
	db        *gorm.DB
	batchSize int
}

func NewChangeEventRepo(db *gorm.DB) ChangeEventRepo {
	return &changeEventRepoImpl{
		db:        db,
		batchSize: 100,
	}
}

// SaveBatch 批量写入
func (r *changeEventRepoImpl) SaveBatch(ctx context.Context, events []model.ChangeEvent) error {
	rows := ToRows(events)
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, r.batchSize).Error
}

// ListByWallet 钱包最近的变化
func (r *changeEventRepoImpl) ListByWallet(ctx context.Context, wallet string, limit int) ([]model.ChangeEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []*model.TokenChangeEvents
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("event_time DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]model.ChangeEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.ToChangeEvent())
	}
	return events, nil
}

func (r *changeEventRepoImpl) AutoMigrate() error {
	return r.db.AutoMigrate(&model.TokenChangeEvents{})
}

// ToRows ChangeEvent -> 归档行
func ToRows(events []model.ChangeEvent) []*model.TokenChangeEvents {
	rows := make([]*model.TokenChangeEvents, 0, len(events))
	for _, e := range events {
		rows = append(rows, model.NewTokenChangeEvents(e))
	}
	return rows
}
