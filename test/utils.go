package test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"tryonstudio/models"
	"tryonstudio/services"
	"tryonstudio/store"
	"tryonstudio/tasks"

	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

// PNGImage draws a width x height gradient.
func PNGImage(width, height int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func Base64Image(width, height int) string {
	return services.EncodeImage(PNGImage(width, height))
}

// ProviderMock is a GenerationProvider answering from its fields.
// Structured outputs are looked up by schema name.
type ProviderMock struct {
	mu sync.Mutex

	Models     int
	ListErr    error
	EditResult []byte
	EditUsage  models.UsageDelta
	EditErr    error
	Outputs    map[string]string
	InferUsage models.UsageDelta
	InferErr   error
	// Hold, when set, blocks EditImage until it is closed.
	Hold    chan struct{}
	Started chan struct{}

	EditRequests  []services.ImageEditRequest
	InferRequests []services.StructuredRequest
}

func NewProviderMock() *ProviderMock {
	return &ProviderMock{
		Models:     2,
		EditResult: PNGImage(32, 32),
		EditUsage:  models.UsageDelta{TextTokens: 10, ImageTokens: 200, OutputTokens: 1000},
		InferUsage: models.UsageDelta{TextTokens: 5, ImageTokens: 100, OutputTokens: 20},
		Outputs: map[string]string{
			"item_metadata":    `{"name":"Striped shirt","category":"tops","description":"A blue and white striped shirt."}`,
			"image_validation": `{"is_valid":true,"reason":""}`,
		},
	}
}

func (m *ProviderMock) ListModels(ctx context.Context, credential string) (int, error) {
	return m.Models, m.ListErr
}

func (m *ProviderMock) EditImage(ctx context.Context, credential string, req services.ImageEditRequest) (*services.ImageEditResponse, error) {
	m.mu.Lock()
	m.EditRequests = append(m.EditRequests, req)
	hold, started := m.Hold, m.Started
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.EditErr != nil {
		return nil, m.EditErr
	}
	return &services.ImageEditResponse{Image: m.EditResult, Usage: m.EditUsage}, nil
}

func (m *ProviderMock) InferStructured(ctx context.Context, credential string, req services.StructuredRequest) (*services.StructuredResponse, error) {
	m.mu.Lock()
	m.InferRequests = append(m.InferRequests, req)
	m.mu.Unlock()
	if m.InferErr != nil {
		return nil, m.InferErr
	}
	return &services.StructuredResponse{Output: json.RawMessage(m.Outputs[req.SchemaName]), Usage: m.InferUsage}, nil
}

func (m *ProviderMock) Edits() []services.ImageEditRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.ImageEditRequest(nil), m.EditRequests...)
}

// BillingMock counts MonthCost calls.
type BillingMock struct {
	mu     sync.Mutex
	Amount float64
	Err    error
	Calls  int
}

func (m *BillingMock) MonthCost(ctx context.Context, credential string, since time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.Amount, m.Err
}

// App is every service wired over one database, the way cmd/api wires them.
type App struct {
	DB          *gorm.DB
	Store       *store.EntityStore
	Settings    *store.Settings
	Usage       *services.UsageService
	Costs       *services.CostService
	Categories  *services.CategoryService
	Preferences *services.Preferences
	Generation  *services.GenerationClient
	Runner      *tasks.Runner
	Provider    *ProviderMock
	Billing     *BillingMock
}

const Credential = "sk-test-credential"

// NewApp wires the services and stores Credential as the saved API key.
func NewApp(db *gorm.DB) *App {
	ctx := context.Background()
	app := &App{DB: db, Provider: NewProviderMock(), Billing: &BillingMock{Amount: 12.5}}
	app.Store = store.New(db)
	app.Settings = store.NewSettings(db)

	var err error
	if app.Usage, err = services.NewUsageService(ctx, app.Settings); err != nil {
		panic(err)
	}
	if app.Costs, err = services.NewCostService(ctx, app.Billing, app.Settings); err != nil {
		panic(err)
	}
	resizer, err := services.NewImageResizer()
	if err != nil {
		panic(err)
	}
	app.Generation = services.NewGenerationClient(app.Provider, app.Usage, resizer)
	app.Categories = services.NewCategoryService(app.Settings)
	app.Preferences = services.NewPreferences(app.Settings, app.Generation)
	if err := app.Preferences.SaveCredential(ctx, Credential); err != nil {
		panic(err)
	}
	app.Runner = tasks.NewRunner(app.Store, app.Generation, resizer, app.Categories, app.Preferences)
	return app
}
