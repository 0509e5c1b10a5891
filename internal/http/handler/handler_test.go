package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docmanager/internal/domain"
	"docmanager/internal/http/middleware"
	"docmanager/internal/model"
	"docmanager/internal/service"
	serviceMocks "docmanager/internal/service/mocks"
)

var testSecret = []byte("handler-secret")

func bearer(t *testing.T, role model.Role) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Username: "tester",
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + tok
}

type testApp struct {
	app    *fiber.App
	docs   *serviceMocks.MockDocumentService
	search *serviceMocks.MockSearchService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, _, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ta := &testApp{
		app:    fiber.New(fiber.Config{ErrorHandler: ErrorHandler()}),
		docs:   new(serviceMocks.MockDocumentService),
		search: new(serviceMocks.MockSearchService),
	}
	ta.app.Use(middleware.RequestID())
	RegisterRoutes(ta.app, Deps{
		DB:            db,
		Documents:     ta.docs,
		Search:        ta.search,
		JWTSecret:     testSecret,
		PresignExpiry: 15 * time.Minute,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "# metrics")
		}),
	})
	return ta
}

func (ta *testApp) do(t *testing.T, req *http.Request, role model.Role) (*http.Response, errorPayload) {
	t.Helper()
	if role != "" {
		req.Header.Set("Authorization", bearer(t, role))
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	var body errorPayload
	if resp.StatusCode >= 400 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte, author string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	part.Write(data)
	if author != "" {
		require.NoError(t, w.WriteField("author", author))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessAndMetrics(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "# metrics", string(b))
}

func TestUploadDocument(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ta := newTestApp(t)
		want := &model.Document{ID: uuid.NewString(), Title: "notes.txt", Author: "alice"}
		ta.docs.On("Upload", mock.Anything, mock.MatchedBy(func(f *service.FileUpload) bool {
			return f.Filename == "notes.txt" && f.ContentType == "text/plain" &&
				f.Size == 11 && f.Reader != nil
		}), "alice").Return(want, nil).Once()

		resp, _ := ta.do(t, multipartUpload(t, "notes.txt", "text/plain", []byte("hello world"), "alice"), model.RoleAdmin)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, want.ID, got.ID)
		ta.docs.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		ta := newTestApp(t)
		req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)

		resp, body := ta.do(t, req, model.RoleAdmin)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", body.Error.Code)
	})

	t.Run("validation error surfaces message", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Upload", mock.Anything, mock.Anything, "").
			Return(nil, domain.NewValidationError("author is required")).Once()

		resp, body := ta.do(t, multipartUpload(t, "a.txt", "text/plain", []byte("x"), ""), model.RoleAdmin)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		assert.Equal(t, "author is required", body.Error.Message)
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("parse error", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Upload", mock.Anything, mock.Anything, "alice").
			Return(nil, domain.NewParsingError("failed to parse file", errors.New("bad xref"))).Once()

		resp, body := ta.do(t, multipartUpload(t, "a.pdf", "application/pdf", []byte("%PDF-"), "alice"), model.RoleAdmin)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_PARSING_ERROR", body.Error.Code)
	})

	t.Run("infrastructure error is not leaked", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Upload", mock.Anything, mock.Anything, "alice").
			Return(nil, domain.NewInfrastructureError("failed to save document", errors.New("pq: password=secret"))).Once()

		resp, body := ta.do(t, multipartUpload(t, "a.txt", "text/plain", []byte("x"), "alice"), model.RoleAdmin)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.Equal(t, "internal server error", body.Error.Message)
	})

	t.Run("staging error", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Upload", mock.Anything, mock.Anything, "alice").
			Return(nil, domain.NewIOError("failed to stage uploaded file", errors.New("disk full"))).Once()

		resp, body := ta.do(t, multipartUpload(t, "a.txt", "text/plain", []byte("x"), "alice"), model.RoleAdmin)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "FILE_PROCESSING_ERROR", body.Error.Code)
	})

	t.Run("requires admin", func(t *testing.T) {
		ta := newTestApp(t)
		resp, body := ta.do(t, multipartUpload(t, "a.txt", "text/plain", []byte("x"), "alice"), model.RoleUser)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", body.Error.Code)
		ta.docs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires token", func(t *testing.T) {
		ta := newTestApp(t)
		resp, body := ta.do(t, multipartUpload(t, "a.txt", "text/plain", []byte("x"), "alice"), "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	})
}

func TestGetDocument(t *testing.T) {
	id := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Get", mock.Anything, id).Return(&model.Document{ID: id, Title: "T"}, nil).Once()

		resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+id, nil), model.RoleUser)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.Document
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, id, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Get", mock.Anything, id).Return(nil, domain.NewNotFoundError("document not found")).Once()

		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+id, nil), model.RoleUser)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
		assert.Equal(t, "document not found", body.Error.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		ta := newTestApp(t)
		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/not-a-uuid", nil), model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", body.Error.Code)
	})

	t.Run("unexpected error", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Get", mock.Anything, id).Return(nil, errors.New("boom")).Once()

		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+id, nil), model.RoleUser)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	})
}

func TestDownloadDocument(t *testing.T) {
	ta := newTestApp(t)
	id := uuid.NewString()
	ta.docs.On("DownloadURL", mock.Anything, id).Return("https://minio.local/signed", nil).Once()

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+id+"/download", nil), model.RoleUser)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got downloadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "https://minio.local/signed", got.URL)
	assert.Equal(t, 900, got.ExpiresIn)
}

func TestDeleteDocument(t *testing.T) {
	id := uuid.NewString()

	t.Run("returns deleted document", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Delete", mock.Anything, id).Return(&model.Document{ID: id, Title: "gone"}, nil).Once()

		resp, _ := ta.do(t, httptest.NewRequest(http.MethodDelete, "/api/documents/"+id, nil), model.RoleAdmin)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.Document
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, "gone", got.Title)
	})

	t.Run("not found", func(t *testing.T) {
		ta := newTestApp(t)
		ta.docs.On("Delete", mock.Anything, id).Return(nil, domain.NewNotFoundError("document not found")).Once()

		resp, body := ta.do(t, httptest.NewRequest(http.MethodDelete, "/api/documents/"+id, nil), model.RoleAdmin)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})

	t.Run("requires admin", func(t *testing.T) {
		ta := newTestApp(t)
		resp, _ := ta.do(t, httptest.NewRequest(http.MethodDelete, "/api/documents/"+id, nil), model.RoleUser)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		ta.docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestSearchDocuments(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ta := newTestApp(t)
		ta.search.On("Search", mock.Anything, "budget", 5, 10).Return(&service.SearchResultList{
			Items: []model.SearchResult{{ID: "d-1", Snippet: "...budget..."}},
			Total: 1,
		}, nil).Once()

		resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/search?query=budget&limit=5&offset=10", nil), model.RoleUser)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Len(t, got["data"], 1)
		assert.EqualValues(t, 1, got["total"])
	})

	t.Run("defaults left to service", func(t *testing.T) {
		ta := newTestApp(t)
		ta.search.On("Search", mock.Anything, "", 0, 0).
			Return(&service.SearchResultList{Items: []model.SearchResult{}}, nil).Once()

		resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/search", nil), model.RoleAdmin)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		ta.search.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		ta := newTestApp(t)
		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/search?query=x&limit=abc", nil), model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})

	t.Run("negative limit", func(t *testing.T) {
		ta := newTestApp(t)
		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/search?query=x&limit=-5", nil), model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
		ta.search.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid offset", func(t *testing.T) {
		ta := newTestApp(t)
		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/search?query=x&offset=-1", nil), model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", body.Error.Code)
	})
}

func TestFilterDocuments(t *testing.T) {
	t.Run("fileType alias", func(t *testing.T) {
		ta := newTestApp(t)
		ta.search.On("Filter", mock.Anything, service.FilterQuery{
			Author:      "alice",
			ContentType: "application/pdf",
			FromDate:    "2024-01-01",
			ToDate:      "2024-01-31 23:59:59",
		}, 0, 0).Return(&service.DocumentListResult{Items: []model.Document{}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet,
			"/api/documents/filter?author=alice&fileType=application/pdf&fromDate=2024-01-01&toDate=2024-01-31%2023:59:59", nil)
		resp, _ := ta.do(t, req, model.RoleUser)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		ta.search.AssertExpectations(t)
	})

	t.Run("bad date", func(t *testing.T) {
		ta := newTestApp(t)
		ta.search.On("Filter", mock.Anything, mock.Anything, 0, 0).
			Return(nil, domain.NewValidationError("Invalid date-time format for fromDate: x")).Once()

		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/filter?fromDate=x", nil), model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		assert.Contains(t, body.Error.Message, "fromDate")
	})
}

func TestRouting(t *testing.T) {
	ta := newTestApp(t)

	t.Run("not found route", func(t *testing.T) {
		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/non-existent", nil), "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, body := ta.do(t, httptest.NewRequest(http.MethodPost, "/health", nil), "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
	})
}
