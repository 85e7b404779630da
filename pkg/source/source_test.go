package source

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestMemorySource(t *testing.T) {
	src := NewMemorySource([]byte("one"), []byte("two"), nil)

	if got := src.PageCount(); got != 3 {
		t.Fatalf("PageCount() = %d, expected 3", got)
	}

	data, err := src.Fetch(2)
	if err != nil {
		t.Fatalf("Fetch(2) failed: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("Fetch(2) = %q, expected %q", data, "two")
	}

	if _, err := src.Fetch(3); err == nil {
		t.Error("Fetch(3) on a nil page should fail")
	}

	tests := []struct {
		name string
		page int
	}{
		{"zero", 0},
		{"negative", -1},
		{"past end", 4},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := src.Fetch(test.page); err == nil {
				t.Errorf("Fetch(%d) should fail", test.page)
			}
		})
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()

	// Deliberately created out of order; paging must follow name order.
	pages := map[string]string{
		"003.png":    "third",
		"001.png":    "first",
		"002.jpg":    "second",
		"notes.txt":  "skipped",
		"cover.json": "skipped",
	}
	for name, content := range pages {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource() failed: %v", err)
	}
	defer src.Close()

	if got := src.PageCount(); got != 3 {
		t.Fatalf("PageCount() = %d, expected 3", got)
	}

	expected := []string{"first", "second", "third"}
	for i, want := range expected {
		data, err := src.Fetch(i + 1)
		if err != nil {
			t.Fatalf("Fetch(%d) failed: %v", i+1, err)
		}
		if string(data) != want {
			t.Errorf("Fetch(%d) = %q, expected %q", i+1, data, want)
		}
	}
}

func TestDirSourceEmpty(t *testing.T) {
	if _, err := NewDirSource(t.TempDir()); err == nil {
		t.Error("NewDirSource() on an empty directory should fail")
	}
}

func TestCBZSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.cbz")

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entries := []struct {
		name    string
		content string
	}{
		{"vol1/002.png", "second"},
		{"vol1/001.png", "first"},
		{"vol1/._001.png", "resource fork"},
		{"ComicInfo.xml", "metadata"},
	}
	for _, entry := range entries {
		f, err := w.Create(entry.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(entry.content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewCBZSource(path)
	if err != nil {
		t.Fatalf("NewCBZSource() failed: %v", err)
	}
	defer src.Close()

	if got := src.PageCount(); got != 2 {
		t.Fatalf("PageCount() = %d, expected 2", got)
	}

	data, err := src.Fetch(1)
	if err != nil {
		t.Fatalf("Fetch(1) failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("Fetch(1) = %q, expected %q", data, "first")
	}
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pages/1.png":
			w.Write([]byte("page one"))
		case "/pages/2.png":
			http.Error(w, "gone", http.StatusNotFound)
		default:
			http.Error(w, "unknown", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL+"/pages/%d.png", 2, server.Client())
	defer src.Close()

	data, err := src.Fetch(1)
	if err != nil {
		t.Fatalf("Fetch(1) failed: %v", err)
	}
	if string(data) != "page one" {
		t.Errorf("Fetch(1) = %q, expected %q", data, "page one")
	}

	if _, err := src.Fetch(2); err == nil {
		t.Error("Fetch(2) should fail on HTTP 404")
	}
	if _, err := src.Fetch(9); err == nil {
		t.Error("Fetch(9) should fail out of range")
	}
}
