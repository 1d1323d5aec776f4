package interfaces

import (
	"context"
	"time"

	"OptInSync/internal/geo"
	"OptInSync/internal/model"
)

// FetchMode 拉取模式
type FetchMode string

const (
	FetchFull        FetchMode = "full"        // 全量
	FetchIncremental FetchMode = "incremental" // 增量：仅拉取水位线之后的订单
)

// FetchRequest 拉取请求
type FetchRequest struct {
	Mode      FetchMode
	Watermark string // 增量模式下的水位线（已入库的最大 external_id）
	Refresh   bool   // 全量模式下要求源系统先刷新自身缓存
}

// FetchResult 拉取结果
type FetchResult struct {
	Records          []model.RawOrder
	TotalRemoteCount int
	LastUpdated      *time.Time
}

// OrderFetcher 订单源系统适配器
type OrderFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// UpsertResult 批量写入结果：成功条数与失败条数（按批计）
type UpsertResult struct {
	Inserted int
	Errors   int
}

// OrderStore 订单持久化（按 external_id 幂等写入）
type OrderStore interface {
	Upsert(ctx context.Context, orders []*model.Order) UpsertResult
	Count(ctx context.Context) (int64, error)
	HighestExternalID(ctx context.Context) (string, error)
	ListPage(ctx context.Context, offset, limit int) ([]*model.Order, error)
	UpdateGeo(ctx context.Context, id uint64, loc geo.Location) error
}

// SyncLock 跨进程同步锁：原子的“检查并设置”+ 超时
type SyncLock interface {
	// TryAcquire 获取成功返回持有者令牌；已被未过期的锁占用时返回 ok=false
	TryAcquire(ctx context.Context, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}
