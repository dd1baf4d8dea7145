package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"tryonstudio/models"
	"tryonstudio/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

const generationFailedMessage = "Generation failed. Please try again."

// errorResponse maps the error taxonomy onto status codes.
func errorResponse(c echo.Context, err error) error {
	var genErr *models.GenerationError
	switch {
	case errors.Is(err, tasks.ErrBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Operation already in progress"})
	case errors.Is(err, models.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &genErr):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": generationFailedMessage, "detail": genErr.Message})
	case errors.Is(err, models.ErrGeneration):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": generationFailedMessage})
	}
	log.Printf("[API] %s %s failed: %v", c.Request().Method, c.Path(), err)
	sentry.CaptureException(fmt.Errorf("%s %s: %w", c.Request().Method, c.Path(), err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
}

// bindAndValidate decodes the request body into req and validates it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}

func pathID(c echo.Context) (uint, error) {
	var id uint
	if err := echo.PathParamsBinder(c).Uint("id", &id).BindError(); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
