package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/Jatinbaroliya/trustpayhub/internal/gateway"
	"github.com/Jatinbaroliya/trustpayhub/internal/handlers"
	"github.com/Jatinbaroliya/trustpayhub/internal/middleware"
	"github.com/Jatinbaroliya/trustpayhub/internal/models"
	"github.com/Jatinbaroliya/trustpayhub/internal/repositories"
	"github.com/Jatinbaroliya/trustpayhub/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testKeyID     = "rzp_test_key123"
	testKeySecret = "rzp_secret_456"
)

// stubOrderCreator stands in for the Razorpay orders API.
type stubOrderCreator struct {
	calls int
}

func (s *stubOrderCreator) CreateOrder(ctx context.Context, keyID, keySecret string, req gateway.OrderRequest) (*gateway.Order, error) {
	s.calls++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_test_%d", s.calls),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

type testEnv struct {
	app         *fiber.App
	userRepo    repositories.UserRepository
	paymentRepo repositories.PaymentRepository
	orders      *stubOrderCreator
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all
// handlers/services. Each test gets its own named in-memory database.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	// Configure Viper for testing
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	// Auto-migrate models
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Payment{}))

	// Initialize Repositories
	userRepo := repositories.NewGORMUserRepository(db)
	paymentRepo := repositories.NewGORMPaymentRepository(db)

	// Initialize Services
	orders := &stubOrderCreator{}
	gatewayCfg := services.GatewayConfig{KeyID: testKeyID, KeySecret: testKeySecret}
	paymentService := services.NewPaymentService(paymentRepo, userRepo, orders, gatewayCfg, nil)
	profileService := services.NewProfileService(userRepo, paymentRepo)
	authService := services.NewAuthService(userRepo, jwtSecret)

	// Initialize Handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService, "http://localhost:8080/api/razorpay")
	profileHandler := handlers.NewProfileHandler(profileService)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()

	// API Routes
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	paymentHandler.RegisterRoutes(apiV1)
	paymentHandler.RegisterCallbackRoute(app)

	// Protected routes (require JWT authentication)
	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	profileHandler.RegisterRoutes(protectedRoutes)

	return &testEnv{app: app, userRepo: userRepo, paymentRepo: paymentRepo, orders: orders}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()
	jsonBody, err := json.Marshal(body)
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func registerCreator(t *testing.T, env *testEnv, username, email string) {
	t.Helper()
	resp := postJSON(t, env.app, "/api/v1/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	}, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func loginCreator(t *testing.T, env *testEnv, username string) string {
	t.Helper()
	resp := postJSON(t, env.app, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": "password123",
	}, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

func TestDonationFlow(t *testing.T) {
	env := setupApp(t)
	registerCreator(t, env, "alice", "alice@example.com")

	// Initiate a donation of 500 paise
	resp := postJSON(t, env.app, "/api/v1/payments/initiate", map[string]interface{}{
		"amount":      500,
		"to_username": "alice",
		"name":        "Bob",
		"message":     "go alice!",
	}, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	order := decodeBody(t, resp)
	orderID, _ := order["id"].(string)
	assert.NotEmpty(t, orderID)
	assert.Equal(t, testKeyID, order["key_id"])
	assert.Equal(t, float64(500), order["amount"])
	assert.Equal(t, "http://localhost:8080/api/razorpay", order["callback_url"])

	// The pending record is stored in major units and not yet done
	pending, err := env.paymentRepo.GetByOID(orderID)
	assert.NoError(t, err)
	assert.Equal(t, 5.0, pending.Amount)
	assert.False(t, pending.Done)

	// Pending payments must not show on the public page
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/alice", nil)
	pageResp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	page := decodeBody(t, pageResp)
	assert.Equal(t, float64(0), page["count"])

	// Gateway callback with a valid signature completes the payment
	callback := url.Values{}
	callback.Set("razorpay_order_id", orderID)
	callback.Set("razorpay_payment_id", "pay_test_1")
	callback.Set("razorpay_signature", gateway.Sign(orderID, "pay_test_1", testKeySecret))
	cbReq := httptest.NewRequest(http.MethodPost, "/api/razorpay", strings.NewReader(callback.Encode()))
	cbReq.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	cbResp, err := env.app.Test(cbReq, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, cbResp.StatusCode)
	assert.Equal(t, "/alice?paymentdone=true", cbResp.Header.Get("Location"))

	// Duplicate callback delivery converges on the same state
	cbReq = httptest.NewRequest(http.MethodPost, "/api/razorpay", strings.NewReader(callback.Encode()))
	cbReq.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	cbResp, err = env.app.Test(cbReq, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, cbResp.StatusCode)

	// The public page now shows exactly one completed payment
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/alice", nil)
	pageResp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	page = decodeBody(t, pageResp)
	assert.Equal(t, float64(1), page["count"])
	assert.Equal(t, float64(5), page["raised"])
	payments := page["payments"].([]interface{})
	first := payments[0].(map[string]interface{})
	assert.Equal(t, true, first["done"])
	assert.Equal(t, "Bob", first["name"])
	assert.NotNil(t, first["createdAt"])
}

func TestInitiateRejectsInvalidRequests(t *testing.T) {
	env := setupApp(t)
	registerCreator(t, env, "alice", "alice@example.com")

	// Below the gateway's minimum charge floor
	resp := postJSON(t, env.app, "/api/v1/payments/initiate", map[string]interface{}{
		"amount":      50,
		"to_username": "alice",
		"name":        "Bob",
		"message":     "tiny",
	}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown recipient
	resp = postJSON(t, env.app, "/api/v1/payments/initiate", map[string]interface{}{
		"amount":      500,
		"to_username": "ghost",
		"name":        "Bob",
		"message":     "hello",
	}, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Form limits: name too short
	resp = postJSON(t, env.app, "/api/v1/payments/initiate", map[string]interface{}{
		"amount":      500,
		"to_username": "alice",
		"name":        "Bo",
		"message":     "hello",
	}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// No orders may have reached the gateway
	assert.Equal(t, 0, env.orders.calls)
}

func TestCallbackRejectsForgedSignature(t *testing.T) {
	env := setupApp(t)
	registerCreator(t, env, "alice", "alice@example.com")
	assert.NoError(t, env.paymentRepo.Create(&models.Payment{
		OID: "order_forged", Amount: 5, ToUser: "alice",
	}))

	callback := url.Values{}
	callback.Set("razorpay_order_id", "order_forged")
	callback.Set("razorpay_payment_id", "pay_test_1")
	callback.Set("razorpay_signature", "deadbeef")
	req := httptest.NewRequest(http.MethodPost, "/api/razorpay", strings.NewReader(callback.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	payment, err := env.paymentRepo.GetByOID("order_forged")
	assert.NoError(t, err)
	assert.False(t, payment.Done)

	// Unknown order id
	callback.Set("razorpay_order_id", "order_missing")
	req = httptest.NewRequest(http.MethodPost, "/api/razorpay", strings.NewReader(callback.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPaymentsListSortedByAmountDesc(t *testing.T) {
	env := setupApp(t)
	registerCreator(t, env, "alice", "alice@example.com")

	for i, amount := range []float64{2, 30, 10} {
		assert.NoError(t, env.paymentRepo.Create(&models.Payment{
			OID: fmt.Sprintf("order_%d", i), Amount: amount, ToUser: "alice", Done: true,
		}))
	}
	// A pending payment must never appear in the list
	assert.NoError(t, env.paymentRepo.Create(&models.Payment{
		OID: "order_pending", Amount: 100, ToUser: "alice",
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/payments", nil)
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payments []map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&payments))
	assert.Len(t, payments, 3)
	assert.Equal(t, float64(30), payments[0]["amount"])
	assert.Equal(t, float64(10), payments[1]["amount"])
	assert.Equal(t, float64(2), payments[2]["amount"])
	for _, p := range payments {
		assert.Equal(t, true, p["done"])
	}
}

func TestProfileRenameCascadesToPayments(t *testing.T) {
	env := setupApp(t)
	registerCreator(t, env, "oldname", "e@x.com")
	token := loginCreator(t, env, "oldname")

	for i, amount := range []float64{5, 7} {
		assert.NoError(t, env.paymentRepo.Create(&models.Payment{
			OID: fmt.Sprintf("order_%d", i), Amount: amount, ToUser: "oldname", Done: true,
		}))
	}

	body, err := json.Marshal(map[string]string{
		"username": "newname",
		"email":    "e@x.com",
		"name":     "Renamed Creator",
	})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, true, result["success"])

	// Every payment follows the rename, none remain on the old name
	renamed, err := env.paymentRepo.ListCompletedByUser("newname")
	assert.NoError(t, err)
	assert.Len(t, renamed, 2)
	remaining, err := env.paymentRepo.ListCompletedByUser("oldname")
	assert.NoError(t, err)
	assert.Empty(t, remaining)

	// The old page is gone, the new one serves the payments
	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/users/oldname", nil)
	getResp, err := env.app.Test(getReq, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, getResp.StatusCode)

	getReq = httptest.NewRequest(http.MethodGet, "/api/v1/users/newname", nil)
	getResp, err = env.app.Test(getReq, -1)
	assert.NoError(t, err)
	page := decodeBody(t, getResp)
	assert.Equal(t, float64(2), page["count"])
	assert.Equal(t, float64(12), page["raised"])
}

func TestProfileRenameConflictIsSoftError(t *testing.T) {
	env := setupApp(t)
	registerCreator(t, env, "oldname", "e@x.com")
	registerCreator(t, env, "newname", "other@x.com")
	token := loginCreator(t, env, "oldname")
	assert.NoError(t, env.paymentRepo.Create(&models.Payment{
		OID: "order_1", Amount: 5, ToUser: "oldname", Done: true,
	}))

	body, err := json.Marshal(map[string]string{
		"username": "newname",
		"email":    "e@x.com",
	})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, "Username already exists", result["error"])

	// Both the user and the payments are unchanged
	user, err := env.userRepo.GetByUsername("oldname")
	assert.NoError(t, err)
	assert.Equal(t, "e@x.com", user.Email)
	payments, err := env.paymentRepo.ListCompletedByUser("oldname")
	assert.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestProfileUpdateAcceptsFormEncoding(t *testing.T) {
	env := setupApp(t)
	registerCreator(t, env, "alice", "alice@example.com")
	token := loginCreator(t, env, "alice")

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("email", "alice@example.com")
	form.Set("name", "Alice Cooper")
	form.Set("razorpayid", "rzp_user_key789")
	form.Set("razorpaysecret", "rzp_user_secret9")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decodeBody(t, resp)
	assert.Equal(t, true, result["success"])

	user, err := env.userRepo.GetByUsername("alice")
	assert.NoError(t, err)
	assert.Equal(t, "Alice Cooper", user.Name)
	assert.Equal(t, "rzp_user_key789", user.RazorpayID)
	assert.Equal(t, "rzp_user_secret9", user.RazorpaySecret)
}

func TestProfileUpdateRequiresAuth(t *testing.T) {
	env := setupApp(t)

	body := []byte(`{"username":"x","email":"e@x.com"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
