package models

import (
	"github.com/go-playground/validator"
)

type PhotoType string

const (
	Face     PhotoType = "face"
	Torso    PhotoType = "torso"
	FullBody PhotoType = "full-body"
)

var PhotoTypes = []PhotoType{Face, Torso, FullBody}

func (p *PhotoType) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*p = PhotoType(v)
	case []byte:
		*p = PhotoType(v)
	}
	return nil
}

func (p PhotoType) Value() (string, error) {
	return string(p), nil
}

func (p PhotoType) Valid() bool {
	for _, t := range PhotoTypes {
		if p == t {
			return true
		}
	}
	return false
}

func ValidatePhotoType(fl validator.FieldLevel) bool {
	return PhotoType(fl.Field().String()).Valid()
}

// ProfilePhoto type is fixed at creation, only the image may be replaced.
type ProfilePhoto struct {
	JsonModel
	Type  PhotoType `gorm:"index;not null" json:"type" validate:"required,phototype"`
	Image string    `gorm:"type:text;not null" json:"image" validate:"required,base64"`
}

type ProfilePhotoPatch struct {
	Image *string `json:"image" validate:"omitempty,base64"`
}

func (p ProfilePhotoPatch) Columns() map[string]interface{} {
	columns := map[string]interface{}{}
	if p.Image != nil {
		columns["image"] = *p.Image
	}
	return columns
}

// PhotoValidation is the advisory outcome of a profile photo check.
// Reason is empty when the photo is fully compliant, and may be set on a
// valid photo to carry a soft warning.
type PhotoValidation struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
}
