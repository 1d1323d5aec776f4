package repository

import (
	"context"
	"errors"
	"time"

	"OptInSync/internal/interfaces"
	"OptInSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLockName 订单同步使用的锁名称
const DefaultLockName = "order_sync"

type lockRepository struct {
	db   *gorm.DB
	name string
	now  func() time.Time
}

// NewLockRepository 基于 sync_locks 表的同步锁：过期的锁在获取时清理，插入冲突即视为被占用
func NewLockRepository(db *gorm.DB, name string) interfaces.SyncLock {
	if name == "" {
		name = DefaultLockName
	}
	return &lockRepository{db: db, name: name, now: func() time.Time { return time.Now().UTC() }}
}

// TryAcquire 在同一事务内清理过期锁并尝试插入，返回持有者令牌
func (r *lockRepository) TryAcquire(ctx context.Context, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		return "", false, errors.New("锁超时时间必须大于0")
	}
	now := r.now()
	lock := model.SyncLock{
		Name:       r.name,
		Owner:      uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	acquired := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ? AND expires_at <= ?", r.name, now).
			Delete(&model.SyncLock{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if !acquired {
		return "", false, nil
	}
	return lock.Owner, true, nil
}

// Release 只删除自己持有的锁；令牌不匹配（锁已过期被他人获取）时不做任何事
func (r *lockRepository) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("name = ? AND owner = ?", r.name, token).
		Delete(&model.SyncLock{}).Error
}
