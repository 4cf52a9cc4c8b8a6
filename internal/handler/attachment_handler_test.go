package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docstash/internal/domain/attachment"
	"docstash/internal/middleware"
	"docstash/internal/services"
	"docstash/internal/storage"
	"docstash/internal/testutil"
)

var testSecret = []byte("test-secret")

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := testutil.NewAttachmentRepo()
	svc := services.NewAttachmentService(repo, storage.NewMemoryDriver(), nil, 10<<20)
	h := NewAttachmentHandler(svc)

	r := gin.New()
	auth := middleware.AuthMiddleware(testSecret)
	grp := r.Group("/v1/attachments", auth)
	grp.POST("", h.Upload)
	grp.GET("", h.List)
	grp.GET("/:id", h.GetByID)
	grp.GET("/:id/download", h.Download)
	grp.PATCH("/:id", h.UpdateAssociations)
	grp.DELETE("/:id", h.Delete)
	grp.POST("/purge", h.Purge)
	r.GET("/v1/storage/info", auth, h.StorageInfo)
	return r
}

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AccessClaims{
		UserID:      userID.String(),
		WorkspaceID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func multipartUpload(t *testing.T, fileName string, payload []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, r *gin.Engine, token, fileName string, payload []byte, fields map[string]string) attachment.Attachment {
	t.Helper()
	body, contentType := multipartUpload(t, fileName, payload, fields)
	req := httptest.NewRequest(http.MethodPost, "/v1/attachments", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success bool                  `json:"success"`
		Data    attachment.Attachment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestUploadRequiresAuth(t *testing.T) {
	r := newTestRouter(t)
	body, contentType := multipartUpload(t, "a.txt", []byte("x"), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/attachments", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadAndDownloadDirect(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, uuid.New())
	payload := []byte("%PDF-1.7 fake body")

	created := doUpload(t, r, token, "plan.pdf", payload, map[string]string{
		"type":    "page-attachment",
		"page_id": uuid.NewString(),
	})
	require.Equal(t, "pdf", created.FileExt)
	require.NotNil(t, created.PageID)
	require.NotNil(t, created.WorkspaceID) // carried from the token

	req := httptest.NewRequest(http.MethodGet, "/v1/attachments/"+created.ID.String()+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, payload, w.Body.Bytes())
	require.Contains(t, w.Header().Get("Content-Disposition"), "plan.pdf")
	require.Contains(t, w.Header().Get("Content-Type"), "application/pdf")
}

func TestDownloadSignedMode(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, uuid.New())

	created := doUpload(t, r, token, "img.png", []byte{0x89, 0x50, 0x4e, 0x47}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/attachments/"+created.ID.String()+"/download?mode=signed&expires_in=60", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			URL       string `json:"url"`
			ExpiresIn int64  `json:"expiresIn"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Data.URL, created.FilePath)
	require.Equal(t, int64(60), resp.Data.ExpiresIn)
}

func TestDownloadRejectsBadExpiry(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, uuid.New())
	created := doUpload(t, r, token, "a.txt", []byte("x"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/attachments/"+created.ID.String()+"/download?mode=signed&expires_in=0", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMakesAttachmentUnreachable(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, uuid.New())
	created := doUpload(t, r, token, "bye.txt", []byte("so long"), nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/attachments/"+created.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{
		"/v1/attachments/" + created.ID.String(),
		"/v1/attachments/" + created.ID.String() + "/download",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}

	// second delete reports not found, not success
	req = httptest.NewRequest(http.MethodDelete, "/v1/attachments/"+created.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListByPage(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, uuid.New())
	pageID := uuid.NewString()

	doUpload(t, r, token, "one.txt", []byte("1"), map[string]string{"page_id": pageID})
	doUpload(t, r, token, "two.txt", []byte("2"), map[string]string{"page_id": pageID})
	doUpload(t, r, token, "other.txt", []byte("3"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/attachments?page_id="+pageID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Attachments []attachment.Attachment `json:"attachments"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Attachments, 2)
}

func TestStorageInfoOmitsSecrets(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/v1/storage/info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Driver string            `json:"driver"`
			Config map[string]string `json:"config"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, storage.DriverMemory, resp.Data.Driver)
	for k := range resp.Data.Config {
		require.NotContains(t, k, "secret")
		require.NotContains(t, k, "key")
	}
}
