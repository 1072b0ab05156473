package config

import "testing"

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/inferd-12345.yaml"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoadRejectsMalformedFiles(t *testing.T) {
	d := t.TempDir()
	cases := []struct {
		name string
		file string
		body string
	}{
		{"yaml", "bad.yaml", "addr: :8080\n: broken\n"},
		{"json", "bad.json", `{ "addr": ":8080", "models_dir": }`},
		{"toml", "bad.toml", "addr=:8080\nmodels_dir\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeTempFile(t, d, tc.file, tc.body)
			if _, err := Load(p); err == nil {
				t.Fatalf("expected decode error for %s", tc.file)
			}
		})
	}
}
