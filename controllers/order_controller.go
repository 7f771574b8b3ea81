package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/middleware"
	"github.com/kiwio/print-broker-api/services"
)

// CreateOrder handles POST /api/v1/order/new - places a new order (customers only)
func CreateOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	order, err := services.GetOrderService().Create(c.Request.Context(), *user, req)
	if err != nil {
		middleware.RecordOrderOperation("create", false)
		handleServiceError(c, err)
		return
	}

	middleware.RecordOrderOperation("create", true)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/order/list - the customer's own orders
func ListOrders(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	orders, err := services.GetOrderService().ListOwn(c.Request.Context(), *user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/order/:order_id - the full order view
func GetOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	details, err := services.GetOrderService().GetDetails(c.Request.Context(), *user, c.Param("order_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    details,
	})
}

// CancelOrder handles POST /api/v1/order/:order_id/cancel (order owner only)
func CancelOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	result, err := services.GetOrderService().Cancel(c.Request.Context(), *user, c.Param("order_id"))
	if err != nil {
		middleware.RecordOrderOperation("cancel", false)
		handleServiceError(c, err)
		return
	}

	middleware.RecordOrderOperation("cancel", true)
	message := "Order cancelled"
	if result.AlreadyCancelled {
		message = "Order was already cancelled"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":           message,
			"already_cancelled": result.AlreadyCancelled,
		},
	})
}

// GetProductImage handles GET /api/v1/order/:order_id/product_image
func GetProductImage(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	obj, err := services.GetOrderService().DownloadProductImage(c.Request.Context(), *user, c.Param("order_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
