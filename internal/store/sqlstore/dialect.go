package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect isola o que muda entre postgres e sqlite. As queries são escritas
// com `?` e crases; rebind converte para o formato do banco.
type dialect struct {
	name        string
	driver      string
	schemaFile  string
	numbered    bool // $1, $2... em vez de ?
	quote       string
	forUpdate   string
	tableExists string
	lockLister  string // trava por lister até o fim da transação; vazio quando o banco já serializa
}

var dialects = map[string]dialect{
	"sqlite": {
		name:        "sqlite",
		driver:      "sqlite",
		schemaFile:  "schema/sqlite.sql",
		quote:       "`",
		tableExists: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	},
	"postgres": {
		name:        "postgres",
		driver:      "pgx",
		schemaFile:  "schema/postgres.sql",
		numbered:    true,
		quote:       `"`,
		forUpdate:   " FOR UPDATE",
		tableExists: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?",
		lockLister:  "SELECT pg_advisory_xact_lock(hashtext(?))",
	},
}

func dialectFor(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return dialects["postgres"], nil
	case "sqlite", "sqlite3", "":
		return dialects["sqlite"], nil
	}
	return dialect{}, fmt.Errorf("unsupported storage driver %q", name)
}

func (d dialect) rebind(query string) string {
	if d.quote != "`" {
		query = strings.ReplaceAll(query, "`", d.quote)
	}
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
