package models

type WardrobeItem struct {
	JsonModel
	Name        string  `gorm:"not null" json:"name" validate:"required"`
	Category    string  `gorm:"index;not null" json:"category" validate:"required"` // soft reference into the category set
	Description *string `gorm:"type:text" json:"description"`
	// base64 payloads, no data-url prefix
	OriginalImage string  `gorm:"type:text;not null" json:"original_image" validate:"required,base64"`
	PackshotImage *string `gorm:"type:text" json:"packshot_image"`
	TokensUsed    int     `gorm:"not null;default:1" json:"tokens_used"`
}

// DisplayImage returns the packshot when one was extracted, the original otherwise.
func (w WardrobeItem) DisplayImage() string {
	if w.PackshotImage != nil && *w.PackshotImage != "" {
		return *w.PackshotImage
	}
	return w.OriginalImage
}

// Label is the text used to describe the item to the generation provider.
func (w WardrobeItem) Label() string {
	if w.Name != "" {
		return w.Name
	}
	if w.Description != nil && *w.Description != "" {
		return *w.Description
	}
	return w.Category
}

// WardrobeItemPatch carries the editable attributes of a wardrobe item.
// Nil fields are left untouched.
type WardrobeItemPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Category    *string `json:"category" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

func (p WardrobeItemPatch) Columns() map[string]interface{} {
	columns := map[string]interface{}{}
	if p.Name != nil {
		columns["name"] = *p.Name
	}
	if p.Category != nil {
		columns["category"] = *p.Category
	}
	if p.Description != nil {
		columns["description"] = *p.Description
	}
	return columns
}
