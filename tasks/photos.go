package tasks

import (
	"context"
	"fmt"
	"log"

	"tryonstudio/models"
)

type UploadProfilePhotoIn struct {
	Type  models.PhotoType `json:"type" validate:"required,phototype"`
	Image string           `json:"image" validate:"required"`
	// Force stores the photo even when validation found a problem.
	Force bool `json:"force"`
}

type UploadProfilePhotoOut struct {
	Validation models.PhotoValidation `json:"validation"`
	Photo      *models.ProfilePhoto   `json:"photo,omitempty"`
}

// UploadProfilePhoto validates the photo for its type and stores it when it
// passed, or when the caller insists with Force. A rejected photo is not an
// error: the result carries the reason and no Photo.
func (r *Runner) UploadProfilePhoto(ctx context.Context, in UploadProfilePhotoIn) (*UploadProfilePhotoOut, error) {
	if !in.Type.Valid() {
		return nil, models.NewValidationError("type", "unknown photo type %q", in.Type)
	}
	release, err := r.acquire(fmt.Sprintf("upload-photo:%s", in.Type))
	if err != nil {
		return nil, err
	}
	defer release()

	credential, err := r.credential(ctx)
	if err != nil {
		return nil, err
	}
	image, err := r.storageImage(ctx, "image", in.Image)
	if err != nil {
		return nil, err
	}

	validation, err := r.Generation.ValidateProfilePhoto(ctx, credential, image, in.Type)
	if err != nil {
		return nil, err
	}
	out := &UploadProfilePhotoOut{Validation: *validation}
	if !validation.IsValid && !in.Force {
		log.Printf("[Photo] %s photo rejected: %s", in.Type, validation.Reason)
		return out, nil
	}

	photo := &models.ProfilePhoto{Type: in.Type, Image: image}
	if _, err := r.Store.CreateProfilePhoto(ctx, photo); err != nil {
		return nil, persistFailed("Photo", err)
	}
	if !validation.IsValid {
		log.Printf("[Photo %d] stored despite failed validation", photo.ID)
	}
	out.Photo = photo
	return out, nil
}

func (r *Runner) DeleteProfilePhoto(ctx context.Context, id uint) error {
	return r.Store.DeleteProfilePhoto(ctx, id)
}
