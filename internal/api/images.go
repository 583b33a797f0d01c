package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"proptracker/server/internal/database"
	"proptracker/server/internal/models"
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func (h *Handler) checkUpload(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return errors.New("No images uploaded")
	}
	if len(files) > h.config.Storage.MaxFiles {
		return fmt.Errorf("At most %d images can be uploaded at once", h.config.Storage.MaxFiles)
	}
	for _, f := range files {
		if !allowedImageExtensions[strings.ToLower(filepath.Ext(f.Filename))] {
			return fmt.Errorf("%s is not a supported image type", f.Filename)
		}
		if f.Size > h.config.MaxUploadBytes() {
			return fmt.Errorf("%s exceeds the %dMB limit", f.Filename, h.config.Storage.MaxUploadMB)
		}
	}
	return nil
}

func (h *Handler) UploadImages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	files := form.File["images"]
	if err := h.checkUpload(files); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "images"})
		return
	}

	if err := os.MkdirAll(h.config.Storage.ImageDir, 0755); err != nil {
		h.logger.WithError(err).Error("Failed to create image directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store images"})
		return
	}

	images := make([]models.PropertyImage, 0, len(files))
	for _, f := range files {
		filename := uuid.NewString() + strings.ToLower(filepath.Ext(f.Filename))
		if err := c.SaveUploadedFile(f, filepath.Join(h.config.Storage.ImageDir, filename)); err != nil {
			h.logger.WithError(err).WithField("filename", f.Filename).Error("Failed to save image")
			h.discard(images)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store images"})
			return
		}
		images = append(images, models.PropertyImage{
			PropertyID:   id,
			Filename:     filename,
			OriginalName: f.Filename,
		})
	}

	saved, err := h.db.AddImages(c.Request.Context(), id, images)
	if err != nil {
		h.discard(images)
		h.respondPropertyError(c, id, err, "Failed to store images")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) discard(images []models.PropertyImage) {
	for _, img := range images {
		h.removeImageFile(img.Filename)
	}
}

func (h *Handler) ListImages(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	images, err := h.db.ListImages(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("property_id", id).Error("Failed to list images")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
		return
	}

	c.JSON(http.StatusOK, images)
}

func (h *Handler) SetCoverImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "imageId")
	if !ok {
		return
	}

	if err := h.db.SetCoverImage(c.Request.Context(), id, imageID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		h.logger.WithError(err).WithField("image_id", imageID).Error("Failed to set cover image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set cover image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cover image updated"})
}

func (h *Handler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "imageId")
	if !ok {
		return
	}

	img, err := h.db.DeleteImage(c.Request.Context(), id, imageID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		h.logger.WithError(err).WithField("image_id", imageID).Error("Failed to delete image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}
	h.removeImageFile(img.Filename)

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

// ServeImage streams a stored upload. Only bare file names are accepted.
func (h *Handler) ServeImage(c *gin.Context) {
	name := c.Param("filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	path := filepath.Join(h.config.Storage.ImageDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	c.File(path)
}
