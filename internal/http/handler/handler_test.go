package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reqdesk/internal/model"
	"reqdesk/internal/service"
	serviceMocks "reqdesk/internal/service/mocks"
	"reqdesk/internal/storage"
)

var testToday = model.NewDate(2026, time.October, 17)

func today() model.Date { return testToday }

func jsonRequest(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

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
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateUser(t *testing.T) {
	mockSvc := new(serviceMocks.MockUserService)
	app := fiber.New()
	app.Post("/api/users", CreateUser(mockSvc, today))

	t.Run("success", func(t *testing.T) {
		expiry := testToday.AddDays(365)
		in := service.CreateUserInput{Name: "Mona", CivilID: "290010112345", ExpiryDate: expiry}
		mockSvc.On("Create", mock.Anything, in).
			Return(&service.UserView{ID: 1, Name: "Mona", CivilID: "290010112345", ExpiryDate: expiry}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/users", map[string]any{
			"name": "Mona", "civilId": "290010112345", "expiryDate": expiry.String(),
		}))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var got map[string]any
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, float64(1), got["id"])
		assert.Equal(t, expiry.String(), got["expiryDate"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("expiry must be in the future", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/users", map[string]any{
			"name": "Mona", "civilId": "290010112345", "expiryDate": testToday.String(),
		}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
		assert.Contains(t, res.Error.Details, "expiryDate")
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/users", map[string]any{}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Contains(t, res.Error.Details, "name")
		assert.Contains(t, res.Error.Details, "civilId")
		assert.Contains(t, res.Error.Details, "expiryDate")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate civil id", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, &service.ValidationError{
			Reason:  service.ReasonDuplicateCivilID,
			Message: "User with civil ID 1 already exists",
			Details: map[string]any{"civilId": "1"},
		}).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/users", map[string]any{
			"name": "Mona", "civilId": "1", "expiryDate": testToday.AddDays(1).String(),
		}))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "DUPLICATE_CIVIL_ID", res.Error.Code)
		assert.Equal(t, "1", res.Error.Details["civilId"])
		mockSvc.AssertExpectations(t)
	})
}

func TestUserByID(t *testing.T) {
	mockSvc := new(serviceMocks.MockUserService)
	app := fiber.New()
	app.Get("/api/users/:id", GetUser(mockSvc))
	app.Put("/api/users/:id", UpdateUser(mockSvc, today))
	app.Delete("/api/users/:id", DeleteUser(mockSvc))

	t.Run("get", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(3)).Return(&service.UserView{ID: 3, Name: "Ali"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/users/3", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("get retired", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(4)).Return(nil, &service.NotFoundError{Entity: "User", ID: int64(4)}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/users/4", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		assert.Equal(t, "User not found with ID: 4", res.Error.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/users/abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("update", func(t *testing.T) {
		expiry := testToday.AddDays(10)
		mockSvc.On("Update", mock.Anything, int64(3), service.UpdateUserInput{Name: "New", ExpiryDate: expiry}).
			Return(&service.UserView{ID: 3, Name: "New", ExpiryDate: expiry}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/users/3", map[string]any{
			"name": "New", "expiryDate": expiry.String(),
		}))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("delete twice", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(3)).Return(nil).Once()
		mockSvc.On("Delete", mock.Anything, int64(3)).Return(&service.NotFoundError{Entity: "User", ID: int64(3)}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/users/3", nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/api/users/3", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestRequestHandlers(t *testing.T) {
	mockSvc := new(serviceMocks.MockRequestService)
	app := fiber.New()
	app.Post("/api/requests", CreateRequest(mockSvc))
	app.Get("/api/requests/user/:userId", ListRequestsByUser(mockSvc))
	app.Put("/api/requests/:id", UpdateRequest(mockSvc))
	app.Post("/api/requests/:id/cancel", CancelRequest(mockSvc))
	app.Delete("/api/requests/:id", DeleteRequest(mockSvc))

	t.Run("create", func(t *testing.T) {
		in := service.CreateRequestInput{RequestName: "Renewal", StatusID: 1, OwnerID: 7, AttachmentIDs: []int64{1, 2}}
		mockSvc.On("Create", mock.Anything, in).
			Return(&service.RequestView{ID: 10, RequestName: "Renewal", StatusID: 1, Status: "DRAFT", AttachmentIDs: []int64{1, 2}}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/requests", map[string]any{
			"requestName": "Renewal", "statusId": 1, "userId": 7, "attachmentIds": []int64{1, 2},
		}))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var got service.RequestView
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, []int64{1, 2}, got.AttachmentIDs)
	})

	t.Run("create with expired owner", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, &service.ValidationError{
			Reason: service.ReasonCivilIDExpired, Message: "Civil ID is expired",
		}).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/requests", map[string]any{
			"requestName": "Renewal", "statusId": 1, "userId": 7, "attachmentIds": []int64{1, 2},
		}))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "CIVIL_ID_EXPIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("create without status", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/requests", map[string]any{
			"requestName": "Renewal", "userId": 7,
		}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeError(t, resp).Error.Details, "statusId")
	})

	t.Run("too many attachment ids", func(t *testing.T) {
		ids := make([]int64, 101)
		for i := range ids {
			ids[i] = int64(i + 1)
		}

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/requests", map[string]any{
			"requestName": "Renewal", "statusId": 1, "userId": 7, "attachmentIds": ids,
		}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
		assert.Equal(t, "must have at most 100 items", res.Error.Details["attachmentIds"])
	})

	t.Run("list", func(t *testing.T) {
		mockSvc.On("ListByOwner", mock.Anything, int64(7)).Return([]service.RequestView{{ID: 10}, {ID: 11}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/requests/user/7", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got []service.RequestView
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Len(t, got, 2)
	})

	t.Run("update without attachments", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, int64(10), service.UpdateRequestInput{RequestName: "Renamed", StatusID: 2}).
			Return(&service.RequestView{ID: 10, RequestName: "Renamed"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/requests/10", map[string]any{
			"requestName": "Renamed", "statusId": 2,
		}))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("cancel", func(t *testing.T) {
		mockSvc.On("Cancel", mock.Anything, int64(10)).Return(&service.RequestView{ID: 10, Status: "CANCELLED"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/requests/10/cancel", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("delete unexpected failure", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(10)).Return(errors.New("connection reset")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/requests/10", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", res.Error.Code)
		assert.NotContains(t, res.Error.Message, "connection reset")
	})

	mockSvc.AssertExpectations(t)
}

func TestUploadAttachment(t *testing.T) {
	mockSvc := new(serviceMocks.MockAttachmentService)
	app := fiber.New()
	app.Post("/api/attachments/upload", UploadAttachment(mockSvc))

	multipartBody := func(withType bool) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("file", "test.txt")
		part.Write([]byte("hello world"))
		if withType {
			writer.WriteField("type", "CONTRACT")
		}
		writer.Close()
		return body, writer.FormDataContentType()
	}

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.OriginalFilename == "test.txt" && in.TypeName == "CONTRACT" && in.Size == 11
		})).Return(&model.Attachment{ID: 42, FileName: "uuid_test.txt"}, nil).Once()

		body, ct := multipartBody(true)
		req := httptest.NewRequest(http.MethodPost, "/api/attachments/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var got attachmentView
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, int64(42), got.ID)
		assert.Equal(t, "/api/attachments/download/42", got.DownloadURL)
	})

	t.Run("no file", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/attachments/upload", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("missing type", func(t *testing.T) {
		body, ct := multipartBody(false)
		req := httptest.NewRequest(http.MethodPost, "/api/attachments/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, resp).Error.Code)
	})

	t.Run("unknown type", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, &service.ValidationError{
			Reason: service.ReasonUnknownAttachmentType, Message: "incorrect attachment type: CONTRACT",
		}).Once()

		body, ct := multipartBody(true)
		req := httptest.NewRequest(http.MethodPost, "/api/attachments/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "UNKNOWN_ATTACHMENT_TYPE", decodeError(t, resp).Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestDownloadAttachment(t *testing.T) {
	mockSvc := new(serviceMocks.MockAttachmentService)
	app := fiber.New()
	app.Get("/api/attachments/download/:id", DownloadAttachment(mockSvc))
	app.Get("/api/attachments/:id/link", AttachmentLink(mockSvc))

	t.Run("streams content", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, int64(5)).Return(&service.Download{
			Attachment: &model.Attachment{ID: 5, FileName: "uuid_scan.pdf", FileType: "application/pdf"},
			Body:       io.NopCloser(strings.NewReader("%PDF-1.7")),
			Info:       storage.ObjectInfo{Size: 8},
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/attachments/download/5", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "uuid_scan.pdf")
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "%PDF-1.7", string(b))
	})

	t.Run("missing", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, int64(6)).Return(nil, &service.NotFoundError{Entity: "Attachment", ID: int64(6)}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/attachments/download/6", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("presigned link", func(t *testing.T) {
		mockSvc.On("PresignDownload", mock.Anything, int64(5), 5*time.Minute).Return("https://minio/x", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/attachments/5/link?expiry=5m", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got map[string]string
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, "https://minio/x", got["url"])
	})

	t.Run("link expiry out of range", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/attachments/5/link?expiry=9000h", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	reg := prometheus.NewRegistry()
	reqSvc := new(serviceMocks.MockRequestService)
	RegisterRoutes(app, Deps{
		Users:       new(serviceMocks.MockUserService),
		Requests:    reqSvc,
		Attachments: new(serviceMocks.MockAttachmentService),
		Today:       today,
		Gatherer:    reg,
	})

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("owner listing is not shadowed by :id", func(t *testing.T) {
		reqSvc.On("ListByOwner", mock.Anything, int64(7)).Return([]service.RequestView{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/requests/user/7", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		reqSvc.AssertExpectations(t)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
