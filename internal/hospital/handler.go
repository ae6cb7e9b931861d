package hospital

import (
	"net/http"

	"LifeLink/pkg/apperr"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func callerID(c echo.Context) (primitive.ObjectID, error) {
	raw, _ := c.Get("userID").(string)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthorized("invalid token subject")
	}
	return id, nil
}

func (h *Handler) GetProfile(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}

	hosp, err := h.service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	hosp, err := h.service.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) UpdateInventory(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}

	var req UpdateInventoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	hosp, err := h.service.UpdateInventory(c.Request().Context(), userID, req)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, hosp)
}
