package controllers

import (
	"net/http"

	"tryonstudio/models"
	"tryonstudio/store"
	"tryonstudio/tasks"

	"github.com/labstack/echo/v4"
)

type PhotoController struct {
	Store  *store.EntityStore
	Runner *tasks.Runner
}

func (controller *PhotoController) PhotoRoutes(g *echo.Group) {
	g.GET("", controller.ListPhotos)
	g.POST("", controller.UploadPhoto)
	g.GET("/:id", controller.GetPhoto)
	g.DELETE("/:id", controller.DeletePhoto)
}

func (controller *PhotoController) ListPhotos(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		photos []models.ProfilePhoto
		err    error
	)
	if photoType := c.QueryParam("type"); photoType != "" {
		if !models.PhotoType(photoType).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown photo type")
		}
		photos, err = controller.Store.ListProfilePhotosByType(ctx, models.PhotoType(photoType))
	} else {
		photos, err = controller.Store.ListProfilePhotos(ctx)
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, photos)
}

func (controller *PhotoController) GetPhoto(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	photo, err := controller.Store.GetProfilePhoto(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, photo)
}

// UploadPhoto answers 201 when the photo was stored and 200 with the
// rejection reason when it was not. Resending with "force" stores it anyway.
func (controller *PhotoController) UploadPhoto(c echo.Context) error {
	var req tasks.UploadProfilePhotoIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := controller.Runner.UploadProfilePhoto(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	if out.Photo == nil {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

func (controller *PhotoController) DeletePhoto(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := controller.Runner.DeleteProfilePhoto(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
