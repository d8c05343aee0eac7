package pg

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
)

// OrderRepo 订单存储（Postgres）
type OrderRepo struct{}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{}
}

func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	if err := GetWriteDB(ctx).Create(o).Error; err != nil {
		return basic.NewDBFailed(errors.Wrap(err, "create order failed"))
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := GetReadDB(ctx).Where("order_id = ?", orderID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, basic.NotFoundErr
		}
		return nil, basic.NewDBFailed(err)
	}
	return &o, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *model.Order) error {
	if err := GetWriteDB(ctx).Save(o).Error; err != nil {
		return basic.NewDBFailed(errors.Wrap(err, "save order failed"))
	}
	return nil
}

// ListOrders 查询订单列表
func ListOrders(ctx context.Context, userID, status string) ([]model.Order, error) {
	var orders []model.Order
	db := GetReadDB(ctx).Model(&model.Order{})
	if userID != "" {
		db = db.Where("user_id = ?", userID)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Find(&orders).Error; err != nil {
		return nil, basic.NewDBFailed(err)
	}
	return orders, nil
}
