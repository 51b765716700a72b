package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/prompt-board/backend/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type fakeImages struct {
	put     []string
	removed []string
}

func (f *fakeImages) Put(_ context.Context, filename, contentType string, _ []byte) (*storage.Image, error) {
	f.put = append(f.put, filename+":"+contentType)
	key := storage.ObjectKey(filename)
	return &storage.Image{URL: "https://cdn.example.com/" + key, PublicID: key}, nil
}

func (f *fakeImages) Remove(_ context.Context, publicID string) error {
	f.removed = append(f.removed, publicID)
	return nil
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func uploadRouter(images storage.ImageStore) *gin.Engine {
	h := NewUploadHandler(images)
	r := gin.New()
	r.POST("/upload/image", h.UploadImage)
	r.POST("/upload/images", h.UploadImages)
	r.DELETE("/upload/image", h.DeleteImage)
	return r
}

func TestUploadHandler_UploadImage(t *testing.T) {
	tests := []struct {
		name       string
		files      []upload
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "png",
			files:      []upload{{"image", "cat.PNG", pngHeader}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "not an image",
			files:      []upload{{"image", "notes.png", []byte("just some text")}},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Only image files are allowed",
		},
		{
			name:       "too large",
			files:      []upload{{"image", "big.png", append(append([]byte{}, pngHeader...), make([]byte, maxImageSize)...)}},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "big.png exceeds the 5MB limit",
		},
		{
			name:       "wrong field",
			files:      []upload{{"file", "cat.png", pngHeader}},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "No file uploaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &fakeImages{}
			w := httptest.NewRecorder()
			uploadRouter(images).ServeHTTP(w, multipartRequest(t, "/upload/image", tt.files...))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			env := decodeEnvelope(t, w)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Message)
			}
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, images.put)
				return
			}

			require.Equal(t, []string{"cat.PNG:image/png"}, images.put)
			var img storage.Image
			require.NoError(t, json.Unmarshal(env.Data, &img))
			assert.True(t, strings.HasPrefix(img.PublicID, "prompt-images/"))
			assert.True(t, strings.HasSuffix(img.PublicID, ".png"))
		})
	}
}

func TestUploadHandler_UploadImages(t *testing.T) {
	images := &fakeImages{}
	w := httptest.NewRecorder()
	uploadRouter(images).ServeHTTP(w, multipartRequest(t, "/upload/images",
		upload{"images", "a.png", pngHeader},
		upload{"images", "b.png", pngHeader},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Images []storage.Image `json:"images"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Len(t, data.Images, 2)

	tooMany := make([]upload, maxImagesCount+1)
	for i := range tooMany {
		tooMany[i] = upload{"images", "x.png", pngHeader}
	}
	w = httptest.NewRecorder()
	uploadRouter(&fakeImages{}).ServeHTTP(w, multipartRequest(t, "/upload/images", tooMany...))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_StorageDisabled(t *testing.T) {
	w := httptest.NewRecorder()
	uploadRouter(storage.Disabled{}).ServeHTTP(w, multipartRequest(t, "/upload/image", upload{"image", "cat.png", pngHeader}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeEnvelope(t, w).Message)
}

func TestUploadHandler_DeleteImage(t *testing.T) {
	images := &fakeImages{}
	r := uploadRouter(images)

	req := httptest.NewRequest(http.MethodDelete, "/upload/image", strings.NewReader(`{"publicId":"prompt-images/abc.png"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"prompt-images/abc.png"}, images.removed)

	req = httptest.NewRequest(http.MethodDelete, "/upload/image", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Public ID is required", decodeEnvelope(t, w).Message)
}
