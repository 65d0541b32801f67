package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/middleware"
	"github.com/storefront/commerce-backend/internal/storage"
)

type UploadController struct {
	storage     storage.BlobStore
	maxFileSize int64
}

func NewUploadController(store storage.BlobStore, maxFileSize int64) *UploadController {
	return &UploadController{
		storage:     store,
		maxFileSize: maxFileSize,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Folder      string `json:"folder"` // Optional: defaults to "uploads"
}

// Upload stores a multipart file (field "file") and returns its URL
// POST /api/v1/upload
func (ctrl *UploadController) Upload(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	folder, err := storage.CleanFolder(c.PostForm("folder"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "folder must be a single lower-case segment")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "file is required")
		return
	}

	if err := storage.ValidateFileSize(header.Size, ctrl.maxFileSize); err != nil {
		log.Warn("Upload rejected: too large", map[string]interface{}{
			"size":  header.Size,
			"limit": ctrl.maxFileSize,
		})
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "File exceeds the maximum allowed size")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := storage.ValidateContentType(contentType, storage.AllowedContentTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG, WEBP, GIF and PDF files are allowed")
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	defer file.Close()

	url, err := ctrl.storage.Save(c.Request.Context(), folder, header.Filename, contentType, file, header.Size)
	if err != nil {
		log.Error("Failed to store upload", err, map[string]interface{}{
			"folder":   folder,
			"filename": header.Filename,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to store the file")
		return
	}

	log.Info("File uploaded", map[string]interface{}{
		"folder": folder,
		"url":    url,
	})

	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// GeneratePresignedURL returns a direct-to-bucket upload URL
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GeneratePresignedURLRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := storage.ValidateContentType(req.ContentType, storage.AllowedContentTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG, WEBP, GIF and PDF files are allowed")
		return
	}

	folder, err := storage.CleanFolder(req.Folder)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "folder must be a single lower-case segment")
		return
	}

	response, err := ctrl.storage.PresignUpload(c.Request.Context(), folder, req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			apperrors.RespondWithError(c, http.StatusNotImplemented, apperrors.UploadFailed, "Presigned uploads need the s3 storage driver")
			return
		}
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename": req.Filename,
			"folder":   folder,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to generate presigned URL")
		return
	}

	c.JSON(http.StatusOK, response)
}
