package controllers

import (
	"log"
	"net/http"

	"tryonstudio/services"

	"github.com/labstack/echo/v4"
)

// CredentialMiddleware loads the stored API key into "credential".
// Routes behind it answer 428 until a key was saved.
func CredentialMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		prefs, ok := c.Get("__preferences").(*services.Preferences)
		if !ok {
			return echo.ErrInternalServerError
		}
		credential, err := prefs.Credential(c.Request().Context())
		if err != nil {
			log.Println("Failed to read stored credential", err)
			return echo.ErrInternalServerError
		}
		if credential == "" {
			return c.JSON(http.StatusPreconditionRequired, map[string]string{"error": "API key is required"})
		}
		c.Set("credential", credential)
		return next(c)
	}
}
