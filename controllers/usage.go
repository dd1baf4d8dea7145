package controllers

import (
	"net/http"
	"time"

	"tryonstudio/models"
	"tryonstudio/services"

	"github.com/labstack/echo/v4"
)

type UsageResponse struct {
	models.TokenUsage
	Total int64 `json:"total"`
}

type CostResponse struct {
	Amount      float64    `json:"amount"`
	Unavailable bool       `json:"unavailable"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
}

type UsageController struct {
	Usage *services.UsageService
	Costs *services.CostService
}

func (controller *UsageController) UsageRoutes(g *echo.Group) {
	g.GET("", controller.GetUsage)
	g.POST("/reset", controller.ResetUsage)
}

// CostRoutes expects CredentialMiddleware on g.
func (controller *UsageController) CostRoutes(g *echo.Group) {
	g.GET("", controller.GetMonthCost)
}

func usageResponse(usage models.TokenUsage) UsageResponse {
	return UsageResponse{TokenUsage: usage, Total: usage.Total()}
}

func (controller *UsageController) GetUsage(c echo.Context) error {
	return c.JSON(http.StatusOK, usageResponse(controller.Usage.Usage()))
}

func (controller *UsageController) ResetUsage(c echo.Context) error {
	if err := controller.Usage.Reset(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, usageResponse(controller.Usage.Usage()))
}

// GetMonthCost never fails: billing problems show up as "unavailable" or as
// the last known amount.
func (controller *UsageController) GetMonthCost(c echo.Context) error {
	credential, _ := c.Get("credential").(string)
	amount := controller.Costs.MonthCost(c.Request().Context(), credential)
	resp := CostResponse{Amount: amount, Unavailable: controller.Costs.HasError()}
	if cached, ok := controller.Costs.Cached(); ok && !cached.CapturedAt.IsZero() {
		capturedAt := cached.CapturedAt
		resp.CapturedAt = &capturedAt
	}
	return c.JSON(http.StatusOK, resp)
}
