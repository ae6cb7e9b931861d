package alert

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

func (h *Handler) Create(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}

	var req CreateAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	view, err := h.service.Create(c.Request().Context(), userID, req)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) Active(c echo.Context) error {
	views, err := h.service.ActiveAlerts(c.Request().Context())
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) HospitalAlerts(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}

	status := Status(c.QueryParam("status"))

	views, err := h.service.HospitalAlerts(c.Request().Context(), userID, status)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) Respond(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}

	alertID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert id"})
	}

	var req RespondRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	view, err := h.service.Respond(c.Request().Context(), alertID, userID, req)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}

	alertID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert id"})
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	view, err := h.service.UpdateStatus(c.Request().Context(), alertID, userID, req)
	if err != nil {
		return c.JSON(apperr.Status(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, view)
}
