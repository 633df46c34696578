package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/pkg/serverutils"
	"ai-interior-design-be/internal/repository/repotest"
	"ai-interior-design-be/internal/service"
	"ai-interior-design-be/pkg/blob"
	"ai-interior-design-be/pkg/generation"
	"ai-interior-design-be/pkg/ledger"
	"ai-interior-design-be/pkg/payment"
	"ai-interior-design-be/pkg/replicate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testSecret    = "controller-test-secret"
	testServerKey = "SB-Mid-server-key"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app       *fiber.App
	store     *repotest.Store
	generator *generation.MockImageGenerator
}

type nopGateway struct{}

func (nopGateway) CreateCheckout(_ context.Context, _ payment.Customer, _ payment.Package) (*payment.Checkout, error) {
	return &payment.Checkout{OrderId: "order-1", Token: "tok", RedirectURL: "https://pay.example.com/tok"}, nil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logger.NewNopLogger()
	store := repotest.NewStore()
	gen := generation.NewMockImageGenerator(ctrl)
	l := ledger.New(log)

	rec := generation.NewReconciler(store, gen, nil, l, nil, nil, "https://api.example.com/api/webhooks/replicate", log)
	designService := service.NewDesignService(store, l, rec, blob.NewLocalStore(t.TempDir(), "http://localhost:3000"), log)

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler, BodyLimit: 12 * 1024 * 1024})
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewAuthController(service.NewAuthService(store, testSecret, 1, log), testSecret).RegisterRoutes(api)
	NewDesignController(designService, testSecret).RegisterRoutes(api)
	NewCreditController(service.NewCreditService(store, l, nopGateway{}, log), testSecret).RegisterRoutes(api)
	NewPaymentController(service.NewPaymentService(store, l, nil, testServerKey, log), log).RegisterRoutes(api)
	NewWebhookController(designService, log).RegisterRoutes(api)

	return &testServer{app: app, store: store, generator: gen}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func jsonRequest(method, target string, body interface{}, token string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func tokenFor(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	tok, err := serverutils.IssueToken(testSecret, userId, time.Hour)
	require.NoError(t, err)
	return tok
}

func designForm(t *testing.T, token string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("room_type", "bedroom"))
	require.NoError(t, w.WriteField("style", "minimalist"))
	if image != nil {
		part, err := w.CreateFormFile("image", "bedroom.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/designs", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"full_name": "Ana", "email": "ana@example.com", "password": "password1",
	}, ""))
	require.Equal(t, http.StatusCreated, code, body.Message)

	code, _ = s.do(t, jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"full_name": "Ana", "email": "ana@example.com", "password": "password1",
	}, ""))
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"full_name": "Ana", "email": "not-an-email", "password": "short",
	}, ""))
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "password1",
	}, ""))
	require.Equal(t, http.StatusOK, code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &login))

	code, body = s.do(t, jsonRequest(http.MethodGet, "/api/auth/me", nil, login.AccessToken))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"credits":1`)

	code, _ = s.do(t, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "password2",
	}, ""))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDesignRoutes_CreateThenOutOfCredits(t *testing.T) {
	s := newTestServer(t)
	user := s.store.SeedUser(1)
	token := tokenFor(t, user.Id)

	s.generator.EXPECT().
		Submit(gomock.Any(), gomock.Any(), "Interior design in minimalist style for a bedroom", gomock.Any()).
		Return(&replicate.Prediction{ID: "pred_1", Status: replicate.StateStarting}, nil)

	code, body := s.do(t, designForm(t, token, png))
	require.Equal(t, http.StatusCreated, code, body.Message)
	var created struct {
		Id           uuid.UUID `json:"id"`
		Status       string    `json:"status"`
		PredictionId string    `json:"prediction_id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "processing", created.Status)
	assert.Equal(t, "pred_1", created.PredictionId)

	stored := s.store.Design(created.Id)
	require.NotNil(t, stored)
	assert.True(t, strings.HasPrefix(stored.ImageUrl, "http://localhost:3000/uploads/rooms/"+user.Id.String()+"/"))

	code, body = s.do(t, designForm(t, token, png))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "insufficient credits", body.Message)
	assert.Equal(t, 1, s.store.DesignCount())
}

func TestDesignRoutes_CreateValidation(t *testing.T) {
	s := newTestServer(t)
	user := s.store.SeedUser(1)

	code, body := s.do(t, designForm(t, tokenFor(t, user.Id), nil))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body.Message, "image is required")
	assert.Equal(t, 1, s.store.User(user.Id).Credits)
}

func TestDesignRoutes_Authorization(t *testing.T) {
	s := newTestServer(t)
	owner := s.store.SeedUser(0)
	intruder := s.store.SeedUser(0)
	design := s.store.SeedDesign(entity.Design{
		UserId: owner.Id, ImageUrl: "https://blob.example.com/room.png",
		Style: "modern", RoomType: "bedroom", Status: entity.DesignStatusPending,
	})

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"NoToken", jsonRequest(http.MethodGet, "/api/designs/"+design.Id.String()+"/status", nil, ""), http.StatusUnauthorized},
		{"OtherUser", jsonRequest(http.MethodGet, "/api/designs/"+design.Id.String()+"/status", nil, tokenFor(t, intruder.Id)), http.StatusForbidden},
		{"UnknownDesign", jsonRequest(http.MethodGet, "/api/designs/"+uuid.NewString()+"/status", nil, tokenFor(t, owner.Id)), http.StatusNotFound},
		{"MalformedId", jsonRequest(http.MethodGet, "/api/designs/abc", nil, tokenFor(t, owner.Id)), http.StatusNotFound},
		{"GenerateOtherUser", jsonRequest(http.MethodPost, "/api/designs/generate", map[string]string{"design_id": design.Id.String()}, tokenFor(t, intruder.Id)), http.StatusForbidden},
		{"Owner", jsonRequest(http.MethodGet, "/api/designs/"+design.Id.String(), nil, tokenFor(t, owner.Id)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := s.do(t, tt.req)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestDesignRoutes_StatusProviderFailure(t *testing.T) {
	s := newTestServer(t)
	user := s.store.SeedUser(0)
	pred := "pred_7"
	design := s.store.SeedDesign(entity.Design{
		UserId: user.Id, ImageUrl: "https://blob.example.com/room.png",
		Style: "modern", RoomType: "bedroom", Status: entity.DesignStatusProcessing, PredictionId: &pred,
	})
	s.generator.EXPECT().FetchStatus(gomock.Any(), "pred_7").Return(nil, &replicate.ProviderError{StatusCode: 502, Body: "bad gateway"})

	code, body := s.do(t, jsonRequest(http.MethodGet, "/api/designs/"+design.Id.String()+"/status?prediction_id=pred_7", nil, tokenFor(t, user.Id)))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"provider_error"`)
	assert.Contains(t, string(body.Data), `"status":"processing"`)
}

func TestWebhookRoute_AlwaysAcknowledges(t *testing.T) {
	s := newTestServer(t)
	user := s.store.SeedUser(0)
	pred := "pred_1"
	design := s.store.SeedDesign(entity.Design{
		UserId: user.Id, ImageUrl: "https://blob.example.com/room.png",
		Style: "modern", RoomType: "bedroom", Status: entity.DesignStatusProcessing, PredictionId: &pred,
	})

	bodies := []string{
		`not json`,
		`{"status":"succeeded"}`,
		`{"id":"pred_unknown","status":"succeeded","output":["https://provider/x.png"]}`,
		`{"id":"pred_1","status":"succeeded","output":["https://provider/img.png"]}`,
		`{"id":"pred_1","status":"succeeded","output":["https://provider/img.png"]}`,
	}
	for _, b := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/replicate", strings.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode, b)
		assert.JSONEq(t, `{"received":true}`, string(raw))
	}

	stored := s.store.Design(design.Id)
	assert.Equal(t, entity.DesignStatusCompleted, stored.Status)
	require.NotNil(t, stored.ResultUrl)
	assert.Equal(t, "https://provider/img.png", *stored.ResultUrl)
}

func notificationBody(userId uuid.UUID, signature string) map[string]string {
	n := map[string]string{
		"transaction_status": "settlement",
		"transaction_id":     "tx-123",
		"order_id":           "order-1",
		"status_code":        "200",
		"gross_amount":       "49000.00",
		"custom_field1":      userId.String(),
		"custom_field2":      "5",
		"custom_field3":      "basic",
	}
	if signature == "" {
		signature = payment.Signature(n["order_id"], n["status_code"], n["gross_amount"], testServerKey)
	}
	n["signature_key"] = signature
	return n
}

func TestPaymentNotificationRoute(t *testing.T) {
	s := newTestServer(t)
	user := s.store.SeedUser(0)

	code, _ := s.do(t, jsonRequest(http.MethodPost, "/api/payment/midtrans/notification", notificationBody(user.Id, "forged"), ""))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, s.store.User(user.Id).Credits)

	for i := 0; i < 2; i++ {
		code, body := s.do(t, jsonRequest(http.MethodPost, "/api/payment/midtrans/notification", notificationBody(user.Id, ""), ""))
		require.Equal(t, http.StatusOK, code)
		assert.True(t, body.Success)
	}
	assert.Equal(t, 5, s.store.User(user.Id).Credits)
	assert.Equal(t, 1, s.store.PurchaseCount())
}

func TestPaymentNotificationRoute_TransientFailure(t *testing.T) {
	s := newTestServer(t)
	user := s.store.SeedUser(0)
	s.store.FailNext("uow.Begin", errors.New("too many connections"))

	code, _ := s.do(t, jsonRequest(http.MethodPost, "/api/payment/midtrans/notification", notificationBody(user.Id, ""), ""))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, 0, s.store.User(user.Id).Credits)
}

func TestCreditRoutes(t *testing.T) {
	s := newTestServer(t)
	user := s.store.SeedUser(4)
	token := tokenFor(t, user.Id)

	code, body := s.do(t, jsonRequest(http.MethodGet, "/api/credits/packages", nil, ""))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"premium"`)

	code, body = s.do(t, jsonRequest(http.MethodGet, "/api/credits", nil, token))
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"credits":4}`, string(body.Data))

	code, body = s.do(t, jsonRequest(http.MethodPost, "/api/credits/checkout", map[string]string{"package_id": "basic"}, token))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"snap_token":"tok"`)

	code, _ = s.do(t, jsonRequest(http.MethodPost, "/api/credits/checkout", map[string]string{"package_id": "gold"}, token))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, jsonRequest(http.MethodGet, "/api/credits/purchases", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, code)
}
