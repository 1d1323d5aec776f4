package repository

import (
	"context"
	"errors"
	"time"

	"OptInSync/internal/geo"
	"OptInSync/internal/interfaces"
	"OptInSync/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchSize 单批写入条数上限，限制单次请求的载荷大小
const DefaultBatchSize = 500

// upsertColumns 冲突时整行覆盖的非主键列（后写为准，不做字段级合并）
var upsertColumns = []string{
	"store_id", "opt_in", "total_price", "city", "province", "country",
	"payment_status", "created_at", "ingested_at", "source_geo", "updated_at",
}

// OrderFilter 订单列表筛选条件
type OrderFilter struct {
	StoreID string // 门店ID
	OptIn   *bool  // 是否选择可循环包装
}

// OrderRepository 订单仓储
type OrderRepository interface {
	interfaces.OrderStore
	ListOrders(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*model.Order, int64, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Order, error)
}

type orderRepository struct {
	db        *gorm.DB
	batchSize int
	logger    *logrus.Logger
}

// NewOrderRepository 创建订单仓储；batchSize<=0 时使用默认值
func NewOrderRepository(db *gorm.DB, batchSize int, logger *logrus.Logger) OrderRepository {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &orderRepository{db: db, batchSize: batchSize, logger: logger}
}

// Upsert 按批写入，external_id 冲突时覆盖；单批失败只计入该批的错误数，后续批次继续执行
func (r *orderRepository) Upsert(ctx context.Context, orders []*model.Order) interfaces.UpsertResult {
	var res interfaces.UpsertResult
	now := time.Now()
	for i, batch := range interfaces.Chunk(dedupByExternalID(orders), r.batchSize) {
		for _, o := range batch {
			o.UpdatedAt = now
		}
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(batch).Error
		if err != nil {
			res.Errors += len(batch)
			r.logger.WithError(err).WithFields(logrus.Fields{
				"batch": i,
				"size":  len(batch),
			}).Warn("订单批量写入失败，继续下一批")
			continue
		}
		res.Inserted += len(batch)
	}
	return res
}

// dedupByExternalID 同一批次内的重复订单只保留最后一条（同一条 upsert 语句不能两次更新同一行）
func dedupByExternalID(orders []*model.Order) []*model.Order {
	pos := make(map[string]int, len(orders))
	out := make([]*model.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		if idx, ok := pos[o.ExternalID]; ok {
			out[idx] = o
			continue
		}
		pos[o.ExternalID] = len(out)
		out = append(out, o)
	}
	return out
}

// Count 当前订单总数
func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// HighestExternalID 最大外部订单号（数字字符串按数值比较：先比长度再比字典序）；无数据返回空串
func (r *orderRepository) HighestExternalID(ctx context.Context) (string, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("external_id").
		Order("LENGTH(external_id) DESC").
		Order("external_id DESC").
		Take(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return o.ExternalID, nil
}

// ListPage 按主键顺序分页读取，用于全表扫描
func (r *orderRepository) ListPage(ctx context.Context, offset, limit int) ([]*model.Order, error) {
	var list []*model.Order
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateGeo 回写重新校验后的地理字段
func (r *orderRepository) UpdateGeo(ctx context.Context, id uint64, loc geo.Location) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"city":       loc.City,
			"province":   loc.Province,
			"country":    loc.Country,
			"updated_at": time.Now(),
		}).Error
}

// ListOrders 按条件分页查询订单（看板浏览用）
func (r *orderRepository) ListOrders(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*model.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.StoreID != "" {
		db = db.Where("store_id = ?", filter.StoreID)
	}
	if filter.OptIn != nil {
		db = db.Where("opt_in = ?", *filter.OptIn)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.Order
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetByExternalID 通过外部订单号获取订单
func (r *orderRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}
