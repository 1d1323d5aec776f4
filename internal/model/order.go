package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order 对应 orders 表，外部订单号 external_id 唯一；重复同步同一订单时整行覆盖（后写为准）
type Order struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	ExternalID    string          `gorm:"column:external_id;type:varchar(64);uniqueIndex;not null;comment:外部订单号"`
	StoreID       string          `gorm:"column:store_id;type:varchar(64);index;not null;default:'';comment:门店ID"`
	OptIn         bool            `gorm:"column:opt_in;type:boolean;not null;default:false;comment:是否选择可循环包装"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;default:0;comment:订单金额"`
	City          *string         `gorm:"column:city;type:varchar(128);comment:城市（已校验）"`
	Province      *string         `gorm:"column:province;type:varchar(128);comment:省/州（已校验）"`
	Country       *string         `gorm:"column:country;type:varchar(128);comment:国家（已校验）"`
	PaymentStatus string          `gorm:"column:payment_status;type:varchar(32);comment:支付状态"`
	PlacedAt      time.Time       `gorm:"column:created_at;type:timestamp;index;not null;comment:源系统下单时间"`
	IngestedAt    time.Time       `gorm:"column:ingested_at;type:timestamp;not null;comment:入库时间"`
	SourceGeo     datatypes.JSON  `gorm:"column:source_geo;type:jsonb;comment:原始地理字段，词表更新后用于重新校验"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

func (Order) TableName() string { return "orders" }

// SourceGeo 原始地理输入，落库于 orders.source_geo
type SourceGeo struct {
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	Country     string `json:"country,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// SyncLock 对应 sync_locks 表：跨进程同步锁，过期即视为不存在
type SyncLock struct {
	Name       string    `gorm:"column:name;type:varchar(64);primaryKey;comment:锁名称"`
	Owner      string    `gorm:"column:owner;type:varchar(64);not null;comment:持有者令牌"`
	AcquiredAt time.Time `gorm:"column:acquired_at;type:timestamp;not null;comment:获取时间"`
	ExpiresAt  time.Time `gorm:"column:expires_at;type:timestamp;index;not null;comment:过期时间"`
}

func (SyncLock) TableName() string { return "sync_locks" }
