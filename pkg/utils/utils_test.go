package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractYouTubeID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=abc123&t=10", "abc123", false},
		{"https://youtu.be/abc123?si=x", "abc123", false},
		{"https://www.youtube.com/embed/abc123", "abc123", false},
		{"https://youtube.com/shorts/abc123", "abc123", false},
		{"https://www.youtube.com/v/abc123", "abc123", false},
		{"https://youtu.be/", "", true},
		{"https://example.com/watch?v=abc", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractYouTubeID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractYouTubeID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractYouTubeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalVideoURL(t *testing.T) {
	if got := CanonicalVideoURL("https://youtu.be/xyz"); got != "https://www.youtube.com/watch?v=xyz" {
		t.Errorf("unexpected canonical url %q", got)
	}
	if got := CanonicalVideoURL("https://cdn.example.com/a.mp3"); got != "https://cdn.example.com/a.mp3" {
		t.Errorf("non-youtube url should be unchanged, got %q", got)
	}
	if ChannelURL("") != "" {
		t.Error("empty channel id should give empty url")
	}
}

func TestUUID(t *testing.T) {
	id := GenerateUUID()
	if !ValidUUID(id) {
		t.Fatalf("generated id %q does not validate", id)
	}
	if GenerateUUID() == id {
		t.Error("expected distinct ids")
	}
	for _, bad := range []string{"", "nope", "<script>"} {
		if ValidUUID(bad) {
			t.Errorf("ValidUUID(%q) = true", bad)
		}
	}
}

func TestEnsureParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "db.sqlite3")

	if err := EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to exist: %v", err)
	}
	if FileExists(path) {
		t.Error("file should not exist yet")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("file should exist")
	}
	if err := EnsureParentDir("local.sqlite3"); err != nil {
		t.Errorf("bare file name: %v", err)
	}
}
