package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// get serves one GET request through h.
func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_Embedded(t *testing.T) {
	h := Handler("")

	tests := []struct {
		name     string
		target   string
		contains string
	}{
		{"root serves index", "/", "<!DOCTYPE html>"},
		{"script", "/app.js", "/api/v1/state"},
		{"stylesheet", "/style.css", ".card"},
		{"unknown path falls back", "/rooms/kitchen", "<!DOCTYPE html>"},
		{"single segment falls back", "/nonexistent", "Gray Logic Home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s: status %d, want 200", tt.target, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("GET %s: body missing %q", tt.target, tt.contains)
			}
			if got := rec.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
				t.Errorf("GET %s: Cache-Control = %q", tt.target, got)
			}
		})
	}
}

func TestHandler_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<!DOCTYPE html><html><body>local dashboard</body></html>`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('local')"), 0o600); err != nil {
		t.Fatal(err)
	}

	h := Handler(dir)

	if rec := get(h, "/"); !strings.Contains(rec.Body.String(), "local dashboard") {
		t.Errorf("GET /: expected directory index, got %q", rec.Body.String())
	}
	if rec := get(h, "/app.js"); !strings.Contains(rec.Body.String(), "local") {
		t.Errorf("GET /app.js: expected directory asset, got %q", rec.Body.String())
	}
	if rec := get(h, "/deep/route"); !strings.Contains(rec.Body.String(), "local dashboard") {
		t.Error("fallback did not serve directory index.html")
	}
}

func TestHandler_MissingDirectoryUsesEmbedded(t *testing.T) {
	h := Handler("/nonexistent/dir/that/does/not/exist")

	rec := get(h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /: status %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Gray Logic Home") {
		t.Error("missing directory did not fall back to embedded index.html")
	}
}
