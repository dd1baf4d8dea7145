package services

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"tryonstudio/models"
)

// DataURL prefixes a base64 payload so it can be used directly as an image source.
func DataURL(b64 string, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, b64)
}

// StripDataURL returns the bare base64 payload of a data url. Plain base64 is
// returned unchanged.
func StripDataURL(value string) string {
	if !strings.HasPrefix(value, "data:") {
		return value
	}
	if idx := strings.Index(value, ","); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

// DecodeImage decodes a base64 (or data url) image payload.
func DecodeImage(field string, value string) ([]byte, error) {
	value = StripDataURL(strings.TrimSpace(value))
	if value == "" {
		return nil, models.NewValidationError(field, "image is required")
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, models.NewValidationError(field, "image is not valid base64")
	}
	return data, nil
}

func EncodeImage(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// observers is a callback registry. Callbacks receive a snapshot of T.
type observers[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(T)
}

func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = map[int]func(T){}
	}
	o.nextID++
	id := o.nextID
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.fns, id)
		})
	}
}

func (o *observers[T]) notify(value T) {
	o.mu.Lock()
	fns := make([]func(T), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
