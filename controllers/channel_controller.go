package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/models"
	"github.com/kiwio/print-broker-api/services"
)

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Content  string          `json:"content" binding:"required"`
	Metadata models.Metadata `json:"metadata"`
}

// SendMessage handles POST /api/v1/channel/:channel/messages
func SendMessage(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req SendMessageRequest
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

	msg, err := services.GetChatService().Send(c.Request.Context(), c.Param("channel"), user.Name, req.Content, req.Metadata)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    msg,
	})
}

// EditMessageRequest represents the request body for editing a message
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditMessage handles PUT /api/v1/channel/:channel/messages/:message_id
func EditMessage(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req EditMessageRequest
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

	changed, err := services.GetChatService().Edit(c.Request.Context(), c.Param("channel"), c.Param("message_id"), req.Content)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MESSAGE_NOT_FOUND",
				"message": "Message not found in channel",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Message updated",
		},
	})
}

// DeleteMessage handles DELETE /api/v1/channel/:channel/messages/:message_id
func DeleteMessage(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	deleted, err := services.GetChatService().DeleteMessage(c.Request.Context(), c.Param("channel"), c.Param("message_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MESSAGE_NOT_FOUND",
				"message": "Message not found in channel",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Message deleted",
		},
	})
}

// GetMessages handles GET /api/v1/channel/:channel/messages
func GetMessages(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	ascending := c.Query("order") == "asc"

	messages, err := services.GetChatService().GetMessages(c.Request.Context(), c.Param("channel"), limit, skip, ascending)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}

// GetChannelStats handles GET /api/v1/channel/:channel/stats
func GetChannelStats(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	stats, err := services.GetChatService().GetChannelStats(c.Request.Context(), c.Param("channel"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// EnsureChannel handles POST /api/v1/channel/:channel
func EnsureChannel(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	channel, err := services.GetChatService().EnsureChannel(c.Request.Context(), c.Param("channel"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    channel,
	})
}

// DeleteChannel handles DELETE /api/v1/channel/:channel
func DeleteChannel(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	deleted, err := services.GetChatService().DeleteChannel(c.Request.Context(), c.Param("channel"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"deleted_messages": deleted,
		},
	})
}
