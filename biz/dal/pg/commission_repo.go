package pg

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
)

// CommissionRepo 佣金流水存储（Postgres）
type CommissionRepo struct{}

func NewCommissionRepo() *CommissionRepo {
	return &CommissionRepo{}
}

func (r *CommissionRepo) Create(ctx context.Context, rec *model.CommissionRecord) error {
	if err := GetWriteDB(ctx).Create(rec).Error; err != nil {
		return basic.NewDBFailed(errors.Wrap(err, "create commission record failed"))
	}
	return nil
}

func (r *CommissionRepo) Get(ctx context.Context, recordID string) (*model.CommissionRecord, error) {
	var rec model.CommissionRecord
	err := GetReadDB(ctx).Where("record_id = ?", recordID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, basic.NotFoundErr
		}
		return nil, basic.NewDBFailed(err)
	}
	return &rec, nil
}

func (r *CommissionRepo) UpdateStatus(ctx context.Context, recordID, from, to string, completedAt int64) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if completedAt > 0 {
		updates["completed_at"] = completedAt
	}
	res := GetWriteDB(ctx).Model(&model.CommissionRecord{}).
		Where("record_id = ? and status = ?", recordID, from).
		Updates(updates)
	if res.Error != nil {
		return false, basic.NewDBFailed(res.Error)
	}
	return res.RowsAffected != 0, nil
}

func (r *CommissionRepo) List(ctx context.Context, userID, recordType string) ([]*model.CommissionRecord, error) {
	db := GetReadDB(ctx).Model(&model.CommissionRecord{})
	if userID != "" {
		db = db.Where("user_id = ?", userID)
	}
	if recordType != "" {
		db = db.Where("type = ?", recordType)
	}
	var recs []*model.CommissionRecord
	if err := db.Order("created_at desc").Find(&recs).Error; err != nil {
		return nil, basic.NewDBFailed(err)
	}
	return recs, nil
}

// ListRange 统计热点路径，走 pgx 原生查询
func (r *CommissionRepo) ListRange(ctx context.Context, startMs, endMs int64) ([]*model.CommissionRecord, error) {
	const query = `SELECT record_id, user_id, type, amount, source_user_id, generation, strategy_id, trade_id, status, created_at, completed_at
FROM commission_records WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at`
	rows, err := GetPool().Query(ctx, query, startMs, endMs)
	if err != nil {
		return nil, basic.NewDBFailed(err)
	}
	defer rows.Close()

	var recs []*model.CommissionRecord
	for rows.Next() {
		var rec model.CommissionRecord
		var amount string
		if err := rows.Scan(&rec.RecordID, &rec.UserID, &rec.Type, &amount, &rec.SourceUserID, &rec.Generation,
			&rec.StrategyID, &rec.TradeID, &rec.Status, &rec.CreatedAt, &rec.CompletedAt); err != nil {
			return nil, basic.NewDBFailed(err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, basic.NewDBFailed(err)
		}
		rec.Amount = d
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, basic.NewDBFailed(err)
	}
	return recs, nil
}

func (r *CommissionRepo) ListAll(ctx context.Context) ([]*model.CommissionRecord, error) {
	var recs []*model.CommissionRecord
	if err := GetReadDB(ctx).Order("created_at").Find(&recs).Error; err != nil {
		return nil, basic.NewDBFailed(err)
	}
	return recs, nil
}
