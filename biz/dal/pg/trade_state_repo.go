package pg

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
)

// TradeStateRepo 交易分账状态存储（Postgres）
// trade_id 唯一索引就是幂等闸门本身
type TradeStateRepo struct{}

func NewTradeStateRepo() *TradeStateRepo {
	return &TradeStateRepo{}
}

func (r *TradeStateRepo) GetOrCreate(ctx context.Context, st *model.TradeState) (*model.TradeState, bool, error) {
	res := GetWriteDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).Create(st)
	if res.Error != nil {
		return nil, false, basic.NewDBFailed(errors.Wrap(res.Error, "create trade state failed"))
	}
	if res.RowsAffected > 0 {
		return st, true, nil
	}
	var existing model.TradeState
	if err := GetWriteDB(ctx).Where("trade_id = ?", st.TradeID).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, basic.NotFoundErr
		}
		return nil, false, basic.NewDBFailed(err)
	}
	return &existing, false, nil
}

func (r *TradeStateRepo) UpdateStatus(ctx context.Context, tradeID, from, to string) (bool, error) {
	res := GetWriteDB(ctx).Model(&model.TradeState{}).
		Where("trade_id = ? and status = ?", tradeID, from).
		Updates(map[string]interface{}{"status": to})
	if res.Error != nil {
		return false, basic.NewDBFailed(res.Error)
	}
	return res.RowsAffected != 0, nil
}
