package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// MaxModelFileSize caps uploaded STL models at 50MB.
	MaxModelFileSize = 50 * 1024 * 1024
	// MaxImageFileSize caps uploaded product images at 10MB.
	MaxImageFileSize = 10 * 1024 * 1024
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateModelFile checks filename and size constraints for an STL upload
func ValidateModelFile(filename string, size int64) error {
	if strings.ToLower(filepath.Ext(filename)) != ".stl" {
		return &FileUploadError{
			Code:    "INVALID_FILE_TYPE",
			Message: "Only .stl model files are accepted",
		}
	}
	if size <= 0 {
		return &FileUploadError{
			Code:    "EMPTY_FILE",
			Message: "Uploaded file is empty",
		}
	}
	if size > MaxModelFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("Model file exceeds the %dMB limit", MaxModelFileSize/(1024*1024)),
		}
	}
	return nil
}

// ValidateProductImage checks content type and size constraints for an image upload
func ValidateProductImage(contentType string, size int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return &FileUploadError{
			Code:    "INVALID_FILE_TYPE",
			Message: "Only image files are accepted",
		}
	}
	if size <= 0 {
		return &FileUploadError{
			Code:    "EMPTY_FILE",
			Message: "Uploaded file is empty",
		}
	}
	if size > MaxImageFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("Image exceeds the %dMB limit", MaxImageFileSize/(1024*1024)),
		}
	}
	return nil
}
