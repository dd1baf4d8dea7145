package models

import "gorm.io/datatypes"

// Composition is an immutable try-on result. Its references are checked at
// creation only; deleting a referenced item or photo leaves them dangling.
type Composition struct {
	JsonModel
	Name            string                    `gorm:"not null" json:"name" validate:"required"`
	ProfilePhotoID  uint                      `gorm:"index;not null" json:"profile_photo_id" validate:"required"`
	WardrobeItemIDs datatypes.JSONSlice[uint] `json:"wardrobe_item_ids" validate:"required,min=1"`
	ResultImage     string                    `gorm:"type:text;not null" json:"result_image" validate:"required,base64"`
}
