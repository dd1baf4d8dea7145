package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a keyed record living beside the entity collections.
type Setting struct {
	Key       string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

const (
	SettingCredential     = "openai-api-key"
	SettingQuality        = "openai-quality"
	SettingCategories     = "wardrobe-categories"
	SettingTokenUsage     = "token-usage"
	SettingCostCache      = "api-cost-cache"
	SettingOnboardingSeen = "hideOnboarding"
)
