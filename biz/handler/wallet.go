package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// GetWallet 查询用户钱包
func GetWallet(ctx context.Context, c *app.RequestContext) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": "missing user_id"})
		return
	}
	w, err := ledgerSvc.GetWallet(ctx, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, w)
}
