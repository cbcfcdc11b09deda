package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Jatinbaroliya/trustpayhub/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles HTTP requests for donation pages and payments.
type PaymentHandler struct {
	service     *services.PaymentService
	validate    *validator.Validate
	callbackURL string
}

// NewPaymentHandler creates a new PaymentHandler. callbackURL is the absolute
// URL the checkout session posts its result to.
func NewPaymentHandler(service *services.PaymentService, callbackURL string) *PaymentHandler {
	return &PaymentHandler{
		service:     service,
		validate:    validator.New(),
		callbackURL: callbackURL,
	}
}

// RegisterRoutes registers the payment routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/:username", h.HandleGetUserPage)
	userRoutes.Get("/:username/payments", h.HandleGetPayments)

	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/initiate", h.HandleInitiate)
}

// RegisterCallbackRoute registers the gateway callback endpoint. It lives
// outside the versioned API group because the checkout script posts to the
// exact URL handed out at initiation.
func (h *PaymentHandler) RegisterCallbackRoute(app fiber.Router) {
	app.Post("/api/razorpay", h.HandleGatewayCallback)
}

// InitiateRequest is a donation request. Amount is in minor currency units.
// The name and message limits match what the payment form enforces.
type InitiateRequest struct {
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	ToUsername string `json:"to_username" validate:"required,min=3,max=100"`
	Name       string `json:"name" validate:"required,min=3,max=100"`
	Message    string `json:"message" validate:"required,min=4,max=500"`
}

// HandleGetUserPage returns everything the public donation page needs: the
// normalized user, the completed payments and the raised total.
func (h *PaymentHandler) HandleGetUserPage(c *fiber.Ctx) error {
	username := c.Params("username")

	user, err := h.service.FetchUser(c.Context(), username)
	if err != nil {
		status, message := statusForError(err)
		return c.Status(status).JSON(fiber.Map{"message": message})
	}
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("User %s not found", username),
		})
	}

	payments := h.service.FetchPaymentsForUser(c.Context(), username)
	var raised float64
	for _, p := range payments {
		raised += p.Amount
	}

	return c.JSON(fiber.Map{
		"user":     user,
		"payments": payments,
		"count":    len(payments),
		"raised":   raised,
	})
}

// HandleGetPayments returns the completed payments for a recipient.
func (h *PaymentHandler) HandleGetPayments(c *fiber.Ctx) error {
	return c.JSON(h.service.FetchPaymentsForUser(c.Context(), c.Params("username")))
}

// HandleInitiate validates a donation request and creates the gateway order.
func (h *PaymentHandler) HandleInitiate(c *fiber.Ctx) error {
	var req InitiateRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing initiate request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		var messages []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			messages = append(messages, fmt.Sprintf("field '%s' failed on '%s'", fieldErr.Field(), fieldErr.Tag()))
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed: " + strings.Join(messages, ", "),
		})
	}

	handle, err := h.service.Initiate(c.Context(), req.Amount, req.ToUsername, services.PaymentForm{
		Name:    req.Name,
		Message: req.Message,
	})
	if err != nil {
		log.Printf("Error initiating payment for %s: %v", req.ToUsername, err)
		status, message := statusForError(err)
		return c.Status(status).JSON(fiber.Map{"message": message})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":           handle.OrderID,
		"amount":       handle.Amount,
		"currency":     handle.Currency,
		"receipt":      handle.Receipt,
		"key_id":       handle.KeyID,
		"callback_url": h.callbackURL,
	})
}

// HandleGatewayCallback reconciles the checkout result posted by the gateway
// and redirects back to the recipient's page.
func (h *PaymentHandler) HandleGatewayCallback(c *fiber.Ctx) error {
	orderID := c.FormValue("razorpay_order_id")
	paymentID := c.FormValue("razorpay_payment_id")
	signature := c.FormValue("razorpay_signature")

	if orderID == "" || paymentID == "" || signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Missing razorpay_order_id, razorpay_payment_id or razorpay_signature",
		})
	}

	payment, err := h.service.ConfirmPayment(c.Context(), orderID, paymentID, signature)
	if err != nil {
		log.Printf("Error confirming payment for order %s: %v", orderID, err)
		status, message := statusForError(err)
		return c.Status(status).JSON(fiber.Map{"message": message})
	}

	return c.Redirect(fmt.Sprintf("/%s?paymentdone=true", payment.ToUser), fiber.StatusSeeOther)
}

// statusForError maps the service error taxonomy onto HTTP statuses. Every
// body carries the error's own human-readable message.
func statusForError(err error) (int, string) {
	var gwErr *services.GatewayError
	switch {
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrPaymentNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrSignatureMismatch):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrGatewayNotConfigured), errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusServiceUnavailable, err.Error()
	case errors.Is(err, services.ErrAuthenticationFailed):
		return fiber.StatusBadGateway, err.Error()
	case errors.Is(err, services.ErrGatewayTimeout):
		return fiber.StatusGatewayTimeout, err.Error()
	case errors.Is(err, services.ErrStorageExhausted):
		return fiber.StatusInsufficientStorage, err.Error()
	case errors.Is(err, services.ErrFetchFailed):
		return fiber.StatusInternalServerError, err.Error()
	case errors.As(err, &gwErr):
		return fiber.StatusBadGateway, gwErr.Error()
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}
