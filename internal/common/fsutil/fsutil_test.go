package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"absolute untouched", "/tmp", "/tmp"},
		{"relative untouched", "models/llama.gguf", "models/llama.gguf"},
		{"bare tilde", "~", home},
		{"tilde subdir", "~/models", filepath.Join(home, "models")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExpandHome(tc.in)
			if err != nil {
				t.Fatalf("expand %q: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("expand %q = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "model.gguf")
	if PathExists(p) {
		t.Fatal("missing file reported as existing")
	}
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !PathExists(p) {
		t.Fatal("existing file reported as missing")
	}
	if !PathExists(dir) {
		t.Fatal("directory reported as missing")
	}
}
