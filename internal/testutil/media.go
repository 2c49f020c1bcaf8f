package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
)

// MemoryStore is an in-memory media store for service and handler tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	BaseURL string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), BaseURL: "http://testserver/media"}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return m.BaseURL + "/" + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, strings.TrimPrefix(url, m.BaseURL+"/"))
	return nil
}

func (m *MemoryStore) Backend() string { return "memory" }

// Has reports whether the object behind url is stored.
func (m *MemoryStore) Has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[strings.TrimPrefix(url, m.BaseURL+"/")]
	return ok
}

// Object returns the bytes stored behind url, or nil.
func (m *MemoryStore) Object(url string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[strings.TrimPrefix(url, m.BaseURL+"/")]
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// TinyPNG encodes a solid w x h PNG.
func TinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// PNGDataURI returns TinyPNG as a base64 data URI.
func PNGDataURI(t *testing.T, w, h int) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(TinyPNG(t, w, h))
}
