package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/config"
	"github.com/kiwio/print-broker-api/middleware"
	"github.com/kiwio/print-broker-api/models"
	"github.com/kiwio/print-broker-api/services"
)

// currentUser resolves the authenticated user from the JWT subject. A nil
// return means a response has already been written.
func currentUser(c *gin.Context) *models.User {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		return nil
	}
	return &user
}

// handleServiceError maps service-layer error types onto HTTP statuses.
func handleServiceError(c *gin.Context, err error) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		permission *services.PermissionError
		conflict   *services.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		writeError(c, http.StatusBadRequest, validation.Code, validation.Message)
	case errors.As(err, &notFound):
		writeError(c, http.StatusNotFound, notFound.Code, notFound.Message)
	case errors.As(err, &permission):
		writeError(c, http.StatusForbidden, permission.Code, permission.Message)
	case errors.As(err, &conflict):
		writeError(c, http.StatusConflict, conflict.Code, conflict.Message)
	default:
		log.Printf("internal error: %v", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
