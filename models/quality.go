package models

import (
	"github.com/go-playground/validator"
)

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

func (q Quality) Valid() bool {
	switch q {
	case QualityLow, QualityMedium, QualityHigh:
		return true
	}
	return false
}

func ValidateQuality(fl validator.FieldLevel) bool {
	return Quality(fl.Field().String()).Valid()
}
