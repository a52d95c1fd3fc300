package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker        = "-- +goose Up"
	downMarker      = "-- +goose Down"
	stmtBeginMarker = "-- +goose StatementBegin"
	stmtEndMarker   = "-- +goose StatementEnd"
)

// ValidateDir checks migration filenames, version uniqueness and goose annotations.
func ValidateDir(dir string) error {
	_, err := ListVersions(dir)
	return err
}

// ListVersions validates dir and returns the migration versions in ascending order.
func ListVersions(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	versions := []string{}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", full, err)
		}
		if err := checkAnnotations(name, string(b)); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}

	sort.Strings(versions)
	return versions, nil
}

func checkAnnotations(name, txt string) error {
	up := strings.Index(txt, upMarker)
	if up < 0 {
		return fmt.Errorf("migration %q missing %q", name, upMarker)
	}
	down := strings.Index(txt, downMarker)
	if down < 0 {
		return fmt.Errorf("migration %q missing %q", name, downMarker)
	}
	if down < up {
		return fmt.Errorf("migration %q has Down section before Up", name)
	}
	if begins, ends := strings.Count(txt, stmtBeginMarker), strings.Count(txt, stmtEndMarker); begins != ends {
		return fmt.Errorf("migration %q has %d StatementBegin but %d StatementEnd", name, begins, ends)
	}
	return nil
}
