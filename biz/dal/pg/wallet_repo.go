package pg

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
)

// WalletRepo 钱包存储（Postgres）
type WalletRepo struct{}

func NewWalletRepo() *WalletRepo {
	return &WalletRepo{}
}

func (r *WalletRepo) Get(ctx context.Context, userID string) (*model.Wallet, error) {
	var w model.Wallet
	err := GetReadDB(ctx).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, basic.NotFoundErr
		}
		return nil, basic.NewDBFailed(err)
	}
	return &w, nil
}

// GetOrCreate 懒创建钱包，冲突时读旧行
func (r *WalletRepo) GetOrCreate(ctx context.Context, userID string) (*model.Wallet, error) {
	w := model.NewWallet(userID)
	err := GetWriteDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(w).Error
	if err != nil {
		return nil, basic.NewDBFailed(err)
	}
	var out model.Wallet
	if err := GetWriteDB(ctx).Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, basic.NewDBFailed(err)
	}
	return &out, nil
}

func (r *WalletRepo) Save(ctx context.Context, w *model.Wallet) error {
	if err := GetWriteDB(ctx).Save(w).Error; err != nil {
		return basic.NewDBFailed(errors.Wrap(err, "save wallet failed"))
	}
	return nil
}

func (r *WalletRepo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := GetReadDB(ctx).Model(&model.Wallet{}).Count(&n).Error; err != nil {
		return 0, basic.NewDBFailed(err)
	}
	return int(n), nil
}
