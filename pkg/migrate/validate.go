package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

// ValidateDir checks migration filenames, version uniqueness and goose
// annotations, collecting every problem into one error.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	var errs error

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name))
			continue
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", full, err))
			continue
		}

		errs = multierr.Append(errs, checkGooseSections(name, string(b)))
	}

	return errs
}

// checkGooseSections requires both goose annotations with Up ahead of Down.
func checkGooseSections(name, txt string) error {
	up := strings.Index(txt, upMarker)
	down := strings.Index(txt, downMarker)
	switch {
	case up < 0 && down < 0:
		return fmt.Errorf("migration %q has neither %q nor %q", name, upMarker, downMarker)
	case up < 0:
		return fmt.Errorf("migration %q missing %q", name, upMarker)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", name, downMarker)
	case down < up:
		return fmt.Errorf("migration %q declares %q before %q", name, downMarker, upMarker)
	}
	return nil
}
