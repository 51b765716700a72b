package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/storage"
)

const (
	maxImageSize   = 5 << 20
	maxImagesCount = 10
)

type UploadHandler struct {
	images storage.ImageStore
}

func NewUploadHandler(images storage.ImageStore) *UploadHandler {
	return &UploadHandler{images: images}
}

type deleteImageRequest struct {
	PublicID string `json:"publicId" binding:"required"`
}

func storageError(err error, message string) error {
	if errors.Is(err, storage.ErrDisabled) {
		return apperr.Wrap(apperr.Internal, "Image storage is not configured", err)
	}
	return apperr.Wrap(apperr.Internal, message, err)
}

// readImage validates and reads one uploaded file.
func readImage(fh *multipart.FileHeader) ([]byte, string, error) {
	if fh.Size > maxImageSize {
		return nil, "", apperr.InvalidArgumentf("%s exceeds the 5MB limit", fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.InvalidArgument, "Unable to read upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, "", apperr.Wrap(apperr.InvalidArgument, "Unable to read upload", err)
	}
	if len(data) > maxImageSize {
		return nil, "", apperr.InvalidArgumentf("%s exceeds the 5MB limit", fh.Filename)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", apperr.New(apperr.InvalidArgument, "Only image files are allowed")
	}
	return data, contentType, nil
}

// UploadImage handles POST /upload/image
func (h *UploadHandler) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, apperr.New(apperr.InvalidArgument, "No file uploaded"))
		return
	}

	data, contentType, err := readImage(fh)
	if err != nil {
		respondError(c, err)
		return
	}

	img, err := h.images.Put(c.Request.Context(), fh.Filename, contentType, data)
	if err != nil {
		respondError(c, storageError(err, "Failed to upload image"))
		return
	}
	respond(c, http.StatusOK, "Image uploaded successfully", img)
}

// UploadImages handles POST /upload/images
func (h *UploadHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		respondError(c, apperr.New(apperr.InvalidArgument, "No files uploaded"))
		return
	}
	files := form.File["images"]
	if len(files) > maxImagesCount {
		respondError(c, apperr.InvalidArgumentf("At most %d images can be uploaded at once", maxImagesCount))
		return
	}

	uploaded := make([]*storage.Image, 0, len(files))
	for _, fh := range files {
		data, contentType, err := readImage(fh)
		if err != nil {
			respondError(c, err)
			return
		}
		img, err := h.images.Put(c.Request.Context(), fh.Filename, contentType, data)
		if err != nil {
			respondError(c, storageError(err, fmt.Sprintf("Failed to upload %s", fh.Filename)))
			return
		}
		uploaded = append(uploaded, img)
	}

	respond(c, http.StatusOK, "Images uploaded successfully", gin.H{"images": uploaded})
}

// DeleteImage handles DELETE /upload/image
func (h *UploadHandler) DeleteImage(c *gin.Context) {
	var req deleteImageRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, apperr.New(apperr.InvalidArgument, "Public ID is required"))
		return
	}

	if err := h.images.Remove(c.Request.Context(), req.PublicID); err != nil {
		respondError(c, storageError(err, "Failed to delete image"))
		return
	}
	respond(c, http.StatusOK, "Image deleted successfully", nil)
}
