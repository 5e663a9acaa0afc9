package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	versionLayout          = "20060102150405"
	noTransactionDirective = "-- +goose NO TRANSACTION"
)

var (
	sqlFileRe      = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	enumAddValueRe = regexp.MustCompile(`(?im)^\s*ALTER\s+TYPE\s+\S+\s+ADD\s+VALUE`)
)

// ValidateDir checks migration filenames, unique versions and goose headers.
// A migration that adds an enum value must run outside a transaction, or the
// new rarity or status could not be used by the migrations after it.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read file %q: %w", full, err)
		}
		if err := validateMigrationBody(name, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func validateMigrationBody(name, txt string) error {
	if !strings.Contains(txt, "-- +goose Up") {
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	if !strings.Contains(txt, "-- +goose Down") {
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}
	if enumAddValueRe.MatchString(txt) && !strings.Contains(txt, noTransactionDirective) {
		return fmt.Errorf("migration %q adds an enum value without %q", name, noTransactionDirective)
	}
	return nil
}
