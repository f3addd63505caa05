/**
 * 扫描结果仓库层
 * @author: sun977
 * @date: 2026.02.10
 * @description: MySQL (gorm) 与内存两种实现，serve 模式按 store.enabled 二选一
 * @func: 单纯数据访问，不包含业务逻辑
 */
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"gorm.io/gorm"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

// ErrNotFound 扫描批次不存在
var ErrNotFound = errors.New("scan not found")

// ResultRepository 扫描结果仓库
type ResultRepository interface {
	// Save 保存一次扫描的全部主机结果；结果为空时也登记批次
	Save(ctx context.Context, scanID string, results []model.ScanResult) error
	// FindByScanID 按扫描批次查询，按主机排序；批次不存在返回 ErrNotFound
	FindByScanID(ctx context.Context, scanID string) ([]model.ScanResult, error)
}

// resultRepository gorm 实现
type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository 创建实例
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Save(ctx context.Context, scanID string, results []model.ScanResult) error {
	records := make([]*ScanRecord, 0, len(results))
	for _, res := range results {
		rec, err := NewScanRecord(res)
		if err != nil {
			return err
		}
		rec.ScanID = scanID
		records = append(records, rec)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch := ScanBatch{ScanID: scanID}
		if err := tx.Where(&ScanBatch{ScanID: scanID}).FirstOrCreate(&batch).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return err
		}
		return tx.Model(&batch).Update("hosts", gorm.Expr("hosts + ?", len(records))).Error
	})
	if err != nil {
		logger.LogError(err, "REPO", map[string]interface{}{
			"operation": "save_scan_results",
			"scan_id":   scanID,
			"hosts":     len(results),
		})
		return err
	}
	return nil
}

func (r *resultRepository) FindByScanID(ctx context.Context, scanID string) ([]model.ScanResult, error) {
	db := r.db.WithContext(ctx)

	var batches int64
	if err := db.Model(&ScanBatch{}).Where("scan_id = ?", scanID).Count(&batches).Error; err != nil {
		logger.LogError(err, "REPO", map[string]interface{}{
			"operation": "find_scan_batch",
			"scan_id":   scanID,
		})
		return nil, err
	}
	if batches == 0 {
		return nil, ErrNotFound
	}

	var records []*ScanRecord
	if err := db.Where("scan_id = ?", scanID).Order("host").Find(&records).Error; err != nil {
		logger.LogError(err, "REPO", map[string]interface{}{
			"operation": "find_scan_results",
			"scan_id":   scanID,
		})
		return nil, err
	}
	out := make([]model.ScanResult, 0, len(records))
	for _, rec := range records {
		res, err := rec.Result()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// MemoryRepository 内存实现 (单实例部署 / 未配置数据库)
type MemoryRepository struct {
	mu    sync.RWMutex
	scans map[string][]model.ScanResult
}

// NewMemoryRepository 创建内存仓库
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{scans: make(map[string][]model.ScanResult)}
}

// Save 实现 ResultRepository；同一批次追加
func (m *MemoryRepository) Save(_ context.Context, scanID string, results []model.ScanResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[scanID]; !ok {
		m.scans[scanID] = []model.ScanResult{}
	}
	m.scans[scanID] = append(m.scans[scanID], results...)
	return nil
}

// FindByScanID 实现 ResultRepository
func (m *MemoryRepository) FindByScanID(_ context.Context, scanID string) ([]model.ScanResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results, ok := m.scans[scanID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.ScanResult, 0, len(results))
	out = append(out, results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out, nil
}
