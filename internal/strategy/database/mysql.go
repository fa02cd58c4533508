package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"okx-signal-sentry/pkg/types"
)

// Manager MySQL 结果日志
type Manager struct {
	db     *gorm.DB
	config types.MySQLConfig
}

// SignalRecord 信号记录模型
type SignalRecord struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Symbol      string     `gorm:"type:varchar(20);not null;index:idx_symbol" json:"symbol"`
	Timeframe   string     `gorm:"type:varchar(10);not null" json:"timeframe"`
	Direction   string     `gorm:"type:enum('BUY','SELL');not null" json:"direction"`
	Tier        int        `gorm:"not null" json:"tier"`
	EntryPrice  float64    `gorm:"type:decimal(20,8);not null" json:"entry_price"`
	ZonePrice   *float64   `gorm:"type:decimal(20,8)" json:"zone_price"`
	BrokenLevel *float64   `gorm:"type:decimal(20,8)" json:"broken_level"`
	Indicators  string     `gorm:"type:text" json:"indicators"`
	Result      string     `gorm:"type:varchar(8);not null;default:'PENDING';index:idx_result_expires" json:"result"`
	ExitPrice   *float64   `gorm:"type:decimal(20,8)" json:"exit_price"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `gorm:"not null;index:idx_result_expires" json:"expires_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// TableName 表名
func (SignalRecord) TableName() string { return "signal_records" }

// NewManager 创建数据库管理器
func NewManager(config types.MySQLConfig) (*Manager, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "连接MySQL失败")
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "获取数据库实例失败")
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	manager := &Manager{
		db:     db,
		config: config,
	}

	if err := manager.AutoMigrate(); err != nil {
		return nil, errors.Wrap(err, "数据库迁移失败")
	}

	zap.L().Info("✅ MySQL数据库连接成功",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("database", config.Database))

	return manager, nil
}

// AutoMigrate 自动迁移表结构
func (m *Manager) AutoMigrate() error {
	return m.db.AutoMigrate(&SignalRecord{})
}

// Record 保存待结算信号
func (m *Manager) Record(ctx context.Context, rec *types.SignalRecord) error {
	row := fromRecord(rec)
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrapf(err, "保存信号记录失败 %s", rec.Symbol)
	}
	return nil
}

// UpdateResult 回填结果，只更新仍为 PENDING 的记录
func (m *Manager) UpdateResult(ctx context.Context, id, result string, exitPrice float64, resolvedAt time.Time) error {
	res := m.db.WithContext(ctx).Model(&SignalRecord{}).
		Where("id = ? AND result = ?", id, types.OutcomePending).
		Updates(map[string]interface{}{
			"result":      result,
			"exit_price":  exitPrice,
			"resolved_at": resolvedAt,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "更新信号结果失败 %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrRecordNotFound, id)
	}
	return nil
}

// Pending 已到期待结算的记录
func (m *Manager) Pending(ctx context.Context, now time.Time) ([]types.SignalRecord, error) {
	var rows []SignalRecord
	err := m.db.WithContext(ctx).
		Where("result = ? AND expires_at <= ?", types.OutcomePending, now).
		Order("expires_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "查询待结算信号失败")
	}

	out := make([]types.SignalRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// Stats 按交易对统计
func (m *Manager) Stats(ctx context.Context) ([]types.SignalStats, error) {
	var rows []outcomeCount
	err := m.db.WithContext(ctx).Model(&SignalRecord{}).
		Select("symbol, result, count(*) as n").
		Group("symbol, result").
		Order("symbol").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "统计信号结果失败")
	}
	return aggregate(rows), nil
}

// Close 关闭数据库连接
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接健康状态
func (m *Manager) Health() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func fromRecord(rec *types.SignalRecord) SignalRecord {
	return SignalRecord{
		ID:          rec.ID,
		Symbol:      rec.Symbol,
		Timeframe:   rec.Timeframe,
		Direction:   string(rec.Direction),
		Tier:        rec.Tier,
		EntryPrice:  rec.EntryPrice,
		ZonePrice:   rec.ZonePrice,
		BrokenLevel: rec.BrokenLevel,
		Indicators:  rec.Indicators,
		Result:      rec.Result,
		ExitPrice:   rec.ExitPrice,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
		ResolvedAt:  rec.ResolvedAt,
	}
}

func (r SignalRecord) toRecord() types.SignalRecord {
	return types.SignalRecord{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Timeframe:   r.Timeframe,
		Direction:   types.SignalDirection(r.Direction),
		Tier:        r.Tier,
		EntryPrice:  r.EntryPrice,
		ZonePrice:   r.ZonePrice,
		BrokenLevel: r.BrokenLevel,
		Indicators:  r.Indicators,
		Result:      r.Result,
		ExitPrice:   r.ExitPrice,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		ResolvedAt:  r.ResolvedAt,
	}
}
