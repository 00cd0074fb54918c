package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("TEST_SECRET", "from-env")

	got, err := Load(Source{Name: "api key", File: path, Value: "inline", Env: "TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("TEST_SECRET", " from-env ")

	got, err := Load(Source{Name: "api key", Env: "TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env secret, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("   "), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	t.Setenv("TEST_SECRET_EMPTY", "")

	tests := []struct {
		name string
		src  Source
		want string
	}{
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(t.TempDir(), "nope")}, want: "reading api key from file"},
		{name: "empty file", src: Source{Name: "api key", File: empty}, want: "is empty"},
		{name: "empty env", src: Source{Name: "api key", Env: "TEST_SECRET_EMPTY"}, want: "TEST_SECRET_EMPTY is empty"},
		{name: "nothing", src: Source{}, want: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
