package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/services"
	"github.com/kiwio/print-broker-api/utils"
)

// UploadModel handles POST /api/v1/upload/model - stores an STL model file
// and records its computed volume as metadata for later price estimation.
func UploadModel(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "No file provided",
			},
		})
		return
	}
	defer file.Close()

	if err := utils.ValidateModelFile(header.Filename, header.Size); err != nil {
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

	volume, err := utils.STLVolumeCM3(data)
	if err != nil {
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

	fileID, err := services.GetBlobStore().Put(c.Request.Context(), data, "model/stl", map[string]string{
		"filename":    header.Filename,
		"volume_cm3":  strconv.FormatFloat(volume, 'f', -1, 64),
		"uploaded_by": fmt.Sprintf("%d", user.ID),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": "Failed to store file",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"file_id":    fileID,
			"volume_cm3": volume,
		},
	})
}

// UploadPreview handles POST /api/v1/upload/preview - stores a rendered
// thumbnail keyed to a model file via metadata.
func UploadPreview(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	modelFileID := c.PostForm("model_file_id")
	if modelFileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_MODEL_FILE_ID",
				"message": "model_file_id is required",
			},
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "No file provided",
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

	fileID, err := services.GetBlobStore().Put(c.Request.Context(), data, contentType, map[string]string{
		"model_file_id": modelFileID,
		"uploaded_by":   fmt.Sprintf("%d", user.ID),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": "Failed to store file",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"file_id": fileID,
		},
	})
}

// GetPreviewURL handles GET /api/v1/upload/preview/:file_id - returns a
// presigned URL for a stored preview image.
func GetPreviewURL(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	url, err := services.GetBlobStore().PresignedURL(c.Param("file_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_NOT_FOUND",
				"message": "Preview not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"url": url,
		},
	})
}
