package auth

import (
	"net/http"

	"LifeLink/pkg/apperr"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthHandler struct {
	service *UserService
}

func NewAuthHandler(service *UserService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := h.service.RegisterUser(c.Request().Context(), req)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var cred Credential
	if err := c.Bind(&cred); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := h.service.AuthenticateUser(c.Request().Context(), cred)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// Profile returns the authenticated account's identity record.
func (h *AuthHandler) Profile(c echo.Context) error {
	raw, _ := c.Get("userID").(string)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token"})
	}

	user, err := h.service.FindUser(c.Request().Context(), id)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, userView(user))
}
