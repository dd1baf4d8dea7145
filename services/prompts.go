package services

import (
	"fmt"
	"strings"

	"tryonstudio/models"
)

const (
	PackshotSize    = "1024x1024"
	CompositionSize = "1024x1536"
)

func packshotPrompt(itemLabel string) string {
	return fmt.Sprintf(`Isolate the clothing item (%s) from this photo and present it as a professional product packshot on a plain white background.
Keep only the item, fully visible, with even studio lighting.
Remove every background element, shadow and unrelated object.
Do not crop or clip any part of the item: the whole product must fit inside the %s frame.
Center the item and leave an even white margin on all sides.`, itemLabel, PackshotSize)
}

const metadataSystemPrompt = "You analyze photos of clothing items. Extract the product name, its main category and a short description."

func metadataUserPrompt(categories []string) string {
	return fmt.Sprintf(`From this image extract:
1) A short product name.
2) The main category, one of: %s.
3) A one-sentence description.
If several items are visible, describe the most prominent one.`, strings.Join(categories, ", "))
}

func metadataSchema(categories []string) *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"name":        {Type: "string"},
			"category":    {Type: "string", Enum: categories},
			"description": {Type: "string"},
		},
		Required: []string{"name", "category", "description"},
	}
}

const validationSystemPrompt = `You validate photos for a virtual try-on tool.
Disqualifying problems make the photo invalid and the reason explains why.
Minor problems such as a busy background, a hand or hat partly covering the face, or hair over the eyes keep the photo valid; describe the concern in the reason.
Leave the reason empty when the photo fully meets the requirement.`

var photoRequirements = map[models.PhotoType]string{
	models.Face: "The image must show exactly one human face, from the front, clearly visible and well lit, filling most of the frame. " +
		"No sunglasses, masks or other face coverings. The background should be plain.",
	models.Torso: "The image must show one person from the shoulders to the waist, facing the camera, with both arms visible. " +
		"Clothing should be close-fitting enough to show the body shape; no bulky jackets or loose garments.",
	models.FullBody: "The image must show exactly one person, whole body from head to feet, from the front, standing straight in a neutral pose. " +
		"No other people may appear. The background should be plain.",
}

func photoRequirement(photoType models.PhotoType) string {
	if text, ok := photoRequirements[photoType]; ok {
		return text
	}
	return "The image must show exactly one person, well lit and clearly visible."
}

var validationSchema = &Schema{
	Type: "object",
	Properties: map[string]*Schema{
		"is_valid": {Type: "boolean"},
		"reason":   {Type: "string"},
	},
	Required: []string{"is_valid", "reason"},
}

func compositionPrompt(descriptions []string) string {
	var items strings.Builder
	for i, description := range descriptions {
		fmt.Fprintf(&items, "- Item %d: %s\n", i+1, description)
	}
	return fmt.Sprintf(`Create a realistic virtual try-on image of the person in image 0 wearing the clothing shown in images 1 to %d:
%sThe garments must look naturally fitted, with realistic fabric texture, lighting and shadows.
Use a plain white studio background and remove every other object.
Show the person fully, head to toe, without cropping anything, inside the %s frame.
Center the person and leave an even white margin on all sides.`, len(descriptions), items.String(), CompositionSize)
}
