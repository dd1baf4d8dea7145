package services

import (
	"context"
	"encoding/json"
	"time"

	"tryonstudio/models"

	"google.golang.org/genai"
)

// ImageEditRequest asks the provider to edit one or more source images.
// Images are PNG payloads, the first one is the primary subject.
type ImageEditRequest struct {
	Images  [][]byte
	Prompt  string
	Size    string
	Quality models.Quality
}

type ImageEditResponse struct {
	Image []byte
	Usage models.UsageDelta
}

// StructuredRequest is a text+image inference constrained by Schema.
type StructuredRequest struct {
	SystemPrompt    string
	UserPrompt      string
	Image           []byte
	SchemaName      string
	Schema          *Schema
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
}

type StructuredResponse struct {
	Output json.RawMessage
	Usage  models.UsageDelta
}

// GenerationProvider is the outbound image/inference API.
type GenerationProvider interface {
	// ListModels is the cheap authenticated call used to check a credential.
	ListModels(ctx context.Context, credential string) (int, error)
	EditImage(ctx context.Context, credential string, req ImageEditRequest) (*ImageEditResponse, error)
	InferStructured(ctx context.Context, credential string, req StructuredRequest) (*StructuredResponse, error)
}

// BillingFetcher returns the spend since the given instant. A denied billing
// read is reported as *models.PermissionError.
type BillingFetcher interface {
	MonthCost(ctx context.Context, credential string, since time.Time) (float64, error)
}

// Schema is the subset of JSON schema used for structured outputs.
type Schema struct {
	Type       string
	Properties map[string]*Schema
	// Required also fixes the property order.
	Required []string
	Enum     []string
}

// JSON renders the schema for strict json_schema output formats: every
// object closes additional properties.
func (s *Schema) JSON() map[string]interface{} {
	out := map[string]interface{}{"type": s.Type}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Type == "object" {
		properties := map[string]interface{}{}
		for name, prop := range s.Properties {
			properties[name] = prop.JSON()
		}
		out["properties"] = properties
		out["required"] = s.Required
		out["additionalProperties"] = false
	}
	return out
}

var genaiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"string":  genai.TypeString,
	"boolean": genai.TypeBoolean,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"array":   genai.TypeArray,
}

func (s *Schema) Genai() *genai.Schema {
	out := &genai.Schema{Type: genaiTypes[s.Type]}
	if len(s.Enum) > 0 {
		out.Format = "enum"
		out.Enum = s.Enum
	}
	if s.Type == "object" {
		out.Properties = map[string]*genai.Schema{}
		for name, prop := range s.Properties {
			out.Properties[name] = prop.Genai()
		}
		out.Required = s.Required
		out.PropertyOrdering = s.Required
	}
	return out
}
