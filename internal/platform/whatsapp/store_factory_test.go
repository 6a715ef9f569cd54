package whatsapp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreFactoryPath(t *testing.T) {
	f := NewStoreFactory("/var/lib/brain", nil)
	cases := []struct {
		name string
		want string
		err  bool
	}{
		{"main", "/var/lib/brain/main.db", false},
		{"team-1_b", "/var/lib/brain/team-1_b.db", false},
		{"../etc/passwd", "", true},
		{"", "", true},
		{"-flag", "", true},
	}
	for _, tc := range cases {
		got, err := f.Path(tc.name)
		if tc.err {
			if !errors.Is(err, ErrInvalidSessionName) {
				t.Fatalf("Path(%q) err = %v", tc.name, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("Path(%q) = %q, %v", tc.name, got, err)
		}
	}
}

func TestStoreFactoryKnown(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"beta.db", "alpha.db", "notes.txt", "bad name.db"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "gamma.db"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := NewStoreFactory(dir, nil).Known()
	if err != nil {
		t.Fatalf("Known: %v", err)
	}
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("Known = %v", got)
	}

	missing, err := NewStoreFactory(filepath.Join(dir, "missing"), nil).Known()
	if err != nil || len(missing) != 0 {
		t.Fatalf("missing dir: %v %v", missing, err)
	}
}
