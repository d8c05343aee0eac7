package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"profitshare-hertz/biz/dal/pg"
)

var referralRepo *pg.ReferralRepo

func InitReferral(repo *pg.ReferralRepo) {
	referralRepo = repo
}

type BindReferralRequest struct {
	UserID     string `json:"user_id"`
	ReferrerID string `json:"referrer_id"`
}

// BindReferral 绑定推荐关系，已绑定的用户不可改绑
func BindReferral(ctx context.Context, c *app.RequestContext) {
	var req BindReferralRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	if err := referralRepo.Bind(ctx, req.UserID, req.ReferrerID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"user_id": req.UserID, "referrer_id": req.ReferrerID})
}

// GetReferralUplines 查询用户的一二代上级
func GetReferralUplines(ctx context.Context, c *app.RequestContext) {
	userID := c.Param("user_id")
	first, err := referralRepo.FirstGeneration(ctx, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	second, err := referralRepo.SecondGeneration(ctx, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"user_id":           userID,
		"first_generation":  first,
		"second_generation": second,
	})
}
