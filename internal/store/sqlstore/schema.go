package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type schemaStatement struct {
	table string
	sql   string
}

// parseSchema divide o script em statements terminados por ';', ignora
// linhas de comentário ('--' ou '#') e extrai a tabela entre as duas
// primeiras crases
func parseSchema(script, prefix string) []schemaStatement {
	var (
		out     []schemaStatement
		current strings.Builder
	)

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')

		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		stmt := strings.TrimSpace(strings.ReplaceAll(current.String(), "{prefix}", prefix))
		current.Reset()
		out = append(out, schemaStatement{table: quotedName(stmt), sql: strings.TrimSuffix(stmt, ";")})
	}
	return out
}

func quotedName(stmt string) string {
	start := strings.IndexByte(stmt, '`')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(stmt[start+1:], '`')
	if end < 0 {
		return ""
	}
	return stmt[start+1 : start+1+end]
}

// Migrate aplica o schema embutido. Statements cuja tabela já existe são
// pulados, então rodar duas vezes não cria nada na segunda.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	script, err := schemaFS.ReadFile(s.dialect.schemaFile)
	if err != nil {
		return 0, fmt.Errorf("read schema: %w", err)
	}

	created := 0
	for _, stmt := range parseSchema(string(script), s.prefix) {
		if stmt.table != "" {
			exists, err := s.tableExists(ctx, s.db, stmt.table)
			if err != nil {
				return created, fmt.Errorf("check table %s: %w", stmt.table, err)
			}
			if exists {
				continue
			}
		}

		if _, err := s.db.ExecContext(ctx, s.dialect.rebind(stmt.sql)); err != nil {
			return created, fmt.Errorf("create %s: %w", stmt.table, err)
		}
		created++
		s.log.Info().Str("table", stmt.table).Msg("table created")
	}
	return created, nil
}

func (s *Store) tableExists(ctx context.Context, q queryer, table string) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, s.dialect.rebind(s.dialect.tableExists), table).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
