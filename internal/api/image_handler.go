package api

import (
	"fmt"
	"net/http"

	"plansly/backend/internal/domain"
	"plansly/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ImageHandler exposes presigned image upload and download flows.
type ImageHandler struct {
	imageService service.ImageService
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(imageService service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

type RequestUploadRequest struct {
	Filename string `json:"filename" binding:"required"`
	Filetype string `json:"filetype" binding:"required"`
	Filesize int64  `json:"filesize" binding:"required,gt=0"`
}

type RequestUploadResponse struct {
	UploadURL string        `json:"upload_url"`
	Image     *domain.Image `json:"image"`
}

// RequestUpload validates the file metadata and returns a presigned
// PUT URL the client uploads to directly.
func (h *ImageHandler) RequestUpload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req RequestUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	uploadURL, image, err := h.imageService.RequestUpload(c.Request.Context(), userID, service.UploadRequest{
		Filename: req.Filename,
		Filetype: req.Filetype,
		Filesize: req.Filesize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RequestUploadResponse{UploadURL: uploadURL, Image: image})
}

// MarkUploaded flips the image record to uploaded after the client
// finished its direct upload.
func (h *ImageHandler) MarkUploaded(c *gin.Context) {
	imageID, ok := pathObjectID(c, "imageId")
	if !ok {
		return
	}

	image, err := h.imageService.MarkUploaded(c.Request.Context(), imageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, image)
}

// DownloadURL returns a short-lived presigned GET URL for the image.
func (h *ImageHandler) DownloadURL(c *gin.Context) {
	imageID, ok := pathObjectID(c, "imageId")
	if !ok {
		return
	}

	url, err := h.imageService.DownloadURL(c.Request.Context(), imageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"download_url": url})
}
