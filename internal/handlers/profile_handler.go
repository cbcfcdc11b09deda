package handlers

import (
	"log"
	"net/url"
	"strings"

	"github.com/Jatinbaroliya/trustpayhub/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProfileHandler handles HTTP requests for profile editing.
type ProfileHandler struct {
	service *services.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		service: service,
	}
}

// RegisterRoutes registers the profile routes. The router is expected to be
// behind AuthRequired: the old username comes from the token, never from the
// request body.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	router.Put("/profile", h.HandleUpdateProfile)
}

// HandleUpdateProfile applies a profile edit. The dashboard form posts
// form-encoded data and API clients send JSON; both are adapted into the same
// normalized update before validation.
func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	oldUsername, ok := c.Locals("username").(string)
	if !ok || oldUsername == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing username claim",
		})
	}

	var update services.ProfileUpdate
	contentType := string(c.Request().Header.ContentType())
	if strings.HasPrefix(contentType, fiber.MIMEApplicationForm) {
		form := url.Values{}
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			form.Add(string(key), string(value))
		})
		update = services.ProfileUpdateFromForm(form)
	} else {
		if err := c.BodyParser(&update); err != nil {
			log.Printf("Error parsing profile update body: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid request body",
				"error":   err.Error(),
			})
		}
	}

	result, err := h.service.UpdateProfile(update, oldUsername)
	if err != nil {
		log.Printf("Error updating profile for %s: %v", oldUsername, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update profile",
			"error":   err.Error(),
		})
	}

	// Soft validation failures come back 200 with an error field, the way the
	// dashboard surfaces them as notifications.
	return c.JSON(result)
}
