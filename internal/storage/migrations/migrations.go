// Package migrations applies the embedded schema for the trade log,
// token counters and bundle audit.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// script is one migration file; Version is its file name without ".sql".
type script struct {
	Version string
	SQL     string
}

// scripts returns the non-empty migrations of dialect in version order.
func scripts(dialect string) ([]script, error) {
	entries, err := fs.ReadDir(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dialect, err)
	}

	var out []script
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		data, err := fs.ReadFile(files, path.Join(dialect, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, script{Version: strings.TrimSuffix(name, ".sql"), SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
