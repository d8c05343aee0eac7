package pg

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm/clause"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
)

// ReferralRepo 推荐关系目录（Postgres），分账引擎只读
type ReferralRepo struct{}

func NewReferralRepo() *ReferralRepo {
	return &ReferralRepo{}
}

// Bind 建立推荐关系，已绑定的用户不可改绑
func (r *ReferralRepo) Bind(ctx context.Context, userID, referrerID string) error {
	if userID == "" || referrerID == "" || userID == referrerID {
		return basic.ParamsErr
	}
	res := GetWriteDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&model.UserReferral{UserID: userID, ReferrerID: referrerID})
	if res.Error != nil {
		return basic.NewDBFailed(errors.Wrap(res.Error, "bind referral failed"))
	}
	if res.RowsAffected == 0 {
		return basic.StateMutationErr
	}
	return nil
}

// FirstGeneration 直接推荐人
func (r *ReferralRepo) FirstGeneration(ctx context.Context, userID string) ([]string, error) {
	var refs []model.UserReferral
	if err := GetReadDB(ctx).Where("user_id = ?", userID).Find(&refs).Error; err != nil {
		return nil, basic.NewDBFailed(err)
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.ReferrerID)
	}
	return out, nil
}

// SecondGeneration 推荐人的推荐人
func (r *ReferralRepo) SecondGeneration(ctx context.Context, userID string) ([]string, error) {
	first, err := r.FirstGeneration(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, ref := range first {
		uplines, err := r.FirstGeneration(ctx, ref)
		if err != nil {
			return nil, err
		}
		for _, up := range uplines {
			if up == userID {
				continue
			}
			if _, ok := seen[up]; ok {
				continue
			}
			seen[up] = struct{}{}
			out = append(out, up)
		}
	}
	return out, nil
}
