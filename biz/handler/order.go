package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"profitshare-hertz/biz/dal/pg"
	"profitshare-hertz/biz/model"
)

// SubmitOrder RESTful 下单接口，受理后异步执行
func SubmitOrder(ctx context.Context, c *app.RequestContext) {
	var req model.SubmitOrderMsg
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	orderID, err := queueSvc.AddOrder(ctx, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"order_id": orderID, "status": model.OrderStatusPending})
}

// GetOrder 查询单个订单
func GetOrder(ctx context.Context, c *app.RequestContext) {
	orderID := c.Param("id")
	order, err := queueSvc.GetOrder(ctx, orderID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, order)
}

// GetOrderStatus 查询订单状态
func GetOrderStatus(ctx context.Context, c *app.RequestContext) {
	orderID := c.Param("id")
	status, err := queueSvc.GetOrderStatus(ctx, orderID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"order_id": orderID, "status": status})
}

// ListOrders 查询订单列表
func ListOrders(ctx context.Context, c *app.RequestContext) {
	userID := string(c.Query("user_id"))
	status := string(c.Query("status"))
	orders, err := pg.ListOrders(ctx, userID, status)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, orders)
}

// CancelOrder 取消订单，终态订单拒绝取消
func CancelOrder(ctx context.Context, c *app.RequestContext) {
	type CancelOrderRequest struct {
		OrderID string `json:"order_id"`
		UserID  string `json:"user_id"`
	}
	var req CancelOrderRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": "invalid request"})
		return
	}
	order, err := queueSvc.GetOrder(ctx, req.OrderID)
	if err != nil || order.UserID != req.UserID {
		c.JSON(consts.StatusNotFound, map[string]interface{}{"error": "order not found or user mismatch"})
		return
	}
	if err := queueSvc.CancelOrder(ctx, req.OrderID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"order_id": req.OrderID, "status": model.OrderStatusCancelled})
}
