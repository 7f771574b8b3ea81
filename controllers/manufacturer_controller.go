package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/middleware"
	"github.com/kiwio/print-broker-api/services"
	"github.com/kiwio/print-broker-api/utils"
)

// ListUnassignedOrders handles GET /api/v1/manufacturer/unassigned_orders
func ListUnassignedOrders(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	orders, err := services.GetOrderService().ListUnassigned(c.Request.Context(), *user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// ListAdoptedOrders handles GET /api/v1/manufacturer/adopted_orders
func ListAdoptedOrders(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	orders, err := services.GetOrderService().ListAdopted(c.Request.Context(), *user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// RejectOrder handles POST /api/v1/manufacturer/reject_order/:order_id
func RejectOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	if err := services.GetOrderService().Reject(c.Request.Context(), *user, c.Param("order_id")); err != nil {
		middleware.RecordOrderOperation("reject", false)
		handleServiceError(c, err)
		return
	}

	middleware.RecordOrderOperation("reject", true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Order rejected",
		},
	})
}

// AssignOrder handles POST /api/v1/manufacturer/assign_order/:order_id
func AssignOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	if err := services.GetOrderService().Assign(c.Request.Context(), *user, c.Param("order_id")); err != nil {
		middleware.RecordOrderOperation("assign", false)
		handleServiceError(c, err)
		return
	}

	middleware.RecordOrderOperation("assign", true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Order assigned",
		},
	})
}

// GetManufacturerOrder handles GET /api/v1/manufacturer/order/:order_id
func GetManufacturerOrder(c *gin.Context) {
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

// StartProduction handles POST /api/v1/manufacturer/order/:order_id/start_production
func StartProduction(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	if err := services.GetOrderService().StartProduction(c.Request.Context(), *user, c.Param("order_id")); err != nil {
		middleware.RecordOrderOperation("start_production", false)
		handleServiceError(c, err)
		return
	}

	middleware.RecordOrderOperation("start_production", true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Production started",
		},
	})
}

// CompleteProduction handles POST /api/v1/manufacturer/order/:order_id/complete_production
func CompleteProduction(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	if err := services.GetOrderService().CompleteProduction(c.Request.Context(), *user, c.Param("order_id")); err != nil {
		middleware.RecordOrderOperation("complete_production", false)
		handleServiceError(c, err)
		return
	}

	middleware.RecordOrderOperation("complete_production", true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Production completed",
		},
	})
}

// UploadProductImage handles POST /api/v1/manufacturer/order/:order_id/upload_image
func UploadProductImage(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "No image file provided",
			},
		})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := utils.ValidateProductImage(contentType, header.Size); err != nil {
		uploadErr := err.(*utils.FileUploadError)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    uploadErr.Code,
				"message": uploadErr.Message,
			},
		})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_READ_ERROR",
				"message": "Failed to read uploaded file",
			},
		})
		return
	}

	fileID, err := services.GetOrderService().UploadProductImage(c.Request.Context(), *user, c.Param("order_id"), data, contentType)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"file_id": fileID,
		},
	})
}

// FinalizeOrder handles POST /api/v1/manufacturer/order/:order_id/finalize
func FinalizeOrder(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req services.FinalizeOrderInput
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

	if err := services.GetOrderService().Finalize(c.Request.Context(), *user, c.Param("order_id"), req); err != nil {
		middleware.RecordOrderOperation("finalize", false)
		handleServiceError(c, err)
		return
	}

	middleware.RecordOrderOperation("finalize", true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Order finalized",
		},
	})
}

// DownloadModelFile handles GET /api/v1/manufacturer/order/:order_id/download_file
func DownloadModelFile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	obj, err := services.GetOrderService().DownloadModel(c.Request.Context(), *user, c.Param("order_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="model.stl"`)
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
