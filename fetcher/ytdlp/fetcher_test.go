package ytdlp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Artist - Title", "Artist - Title"},
		{"strips punctuation", "AC/DC - T.N.T!", "ACDC - TNT"},
		{"keeps underscores and dashes", "lo_fi - mix-01", "lo_fi - mix-01"},
		{"unicode stripped", "Björk - Jóga", "Bjrk - Jga"},
		{"trims trailing space", "Artist - Title?? ", "Artist - Title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeTitle(tt.in); got != tt.want {
				t.Errorf("safeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSafeTitle_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := safeTitle(long)
	if len(got) != 200 {
		t.Errorf("len = %d, want 200", len(got))
	}
}

func TestSafeTitle_EmptyFallsBack(t *testing.T) {
	got := safeTitle("???!!!")
	if !strings.HasPrefix(got, "download_") {
		t.Errorf("safeTitle of all-punctuation = %q, want download_ prefix", got)
	}
}

func TestUniquePath_AvoidsCollision(t *testing.T) {
	dir := t.TempDir()

	first := uniquePath(dir, "Artist - Title", "mp3")
	if first != filepath.Join(dir, "Artist - Title.mp3") {
		t.Fatalf("first path = %q", first)
	}

	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	second := uniquePath(dir, "Artist - Title", "mp3")
	if second == first {
		t.Error("uniquePath returned the existing path")
	}
	if !strings.HasPrefix(filepath.Base(second), "Artist - Title_") {
		t.Errorf("second path = %q, want timestamp suffix", second)
	}
}

func TestTemplateFor(t *testing.T) {
	got := templateFor("/music/Artist - Title.mp3")
	if got != "/music/Artist - Title.%(ext)s" {
		t.Errorf("templateFor = %q", got)
	}
}

func TestAudioQuality(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"320kbps", "320K"},
		{"256kbps", "256K"},
		{"", "320K"},
		{"best", "320K"},
	}
	for _, tt := range tests {
		if got := audioQuality(tt.in); got != tt.want {
			t.Errorf("audioQuality(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
