package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeS3 is a minimal path-style object store: PUT, GET and DELETE on /bucket/key.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[path] = body
		f.contentTypes[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"fake-etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(path string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[path]
	return body, f.contentTypes[path], ok
}

func newTestS3Storage(t *testing.T, endpoint string, baseURL string) *S3Storage {
	t.Helper()
	s, err := NewS3Storage(Config{
		Type:      TypeS3,
		Endpoint:  endpoint,
		Bucket:    "portfolio",
		AccessKey: "test-access",
		SecretKey: "test-secret",
		BaseURL:   baseURL,
	})
	if err != nil {
		t.Fatalf("NewS3Storage error: %v", err)
	}
	return s
}

func TestS3Storage_SaveDelete(t *testing.T) {
	ctx := context.Background()
	fake, server := newFakeS3(t)
	s := newTestS3Storage(t, server.URL, "")

	content := []byte("png bytes")
	if err := s.Save(ctx, "abc.png", bytes.NewReader(content), "image/png"); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	body, contentType, ok := fake.object("portfolio/abc.png")
	if !ok {
		t.Fatalf("expected object portfolio/abc.png to be stored")
	}
	if !bytes.Equal(body, content) {
		t.Fatalf("stored body mismatch: got %q", body)
	}
	if contentType != "image/png" {
		t.Fatalf("stored content type = %q, want image/png", contentType)
	}

	if err := s.Delete(ctx, "abc.png"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, _, ok := fake.object("portfolio/abc.png"); ok {
		t.Fatalf("expected object portfolio/abc.png to be deleted")
	}

	// deleting a missing object is not an error
	if err := s.Delete(ctx, "abc.png"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
}

func TestS3Storage_GetURL(t *testing.T) {
	_, server := newFakeS3(t)

	s := newTestS3Storage(t, server.URL, "")
	if got, want := s.GetURL("abc.png"), server.URL+"/portfolio/abc.png"; got != want {
		t.Errorf("GetURL() = %q, want %q", got, want)
	}

	public := newTestS3Storage(t, server.URL, "https://cdn.example.com/public/")
	if got, want := public.GetURL("abc.png"), "https://cdn.example.com/public/abc.png"; got != want {
		t.Errorf("GetURL() with base url = %q, want %q", got, want)
	}
}

func TestNewS3Storage_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing endpoint", Config{Bucket: "b", AccessKey: "a", SecretKey: "s"}},
		{"missing bucket", Config{Endpoint: "http://localhost", AccessKey: "a", SecretKey: "s"}},
		{"missing access key", Config{Endpoint: "http://localhost", Bucket: "b", SecretKey: "s"}},
		{"missing secret key", Config{Endpoint: "http://localhost", Bucket: "b", AccessKey: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewS3Storage(tt.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
