// Package migrations embeds the SQL schema migrations.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration is a single forward migration.
type Migration struct {
	Version string
	SQL     string
}

// Up returns the forward migrations ordered by version.
func Up() ([]Migration, error) {
	names, err := fs.Glob(files, "*_*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		payload, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{
			Version: strings.TrimSuffix(name, ".up.sql"),
			SQL:     string(payload),
		})
	}
	return out, nil
}
