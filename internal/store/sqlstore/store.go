package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/diogoX451/bazaar/internal/store"
)

type Config struct {
	Driver            string
	DSN               string
	TablePrefix       string
	MaxPoolSize       int
	MinIdle           int
	MaxLifetime       time.Duration
	ConnectionTimeout time.Duration
	IncrementRate     float64
	// MaxListingsPerLister limita os listings ativos de um lister. 0 desliga.
	MaxListingsPerLister int
}

// Store é o backend relacional. O pool pertence só a ele.
type Store struct {
	cfg     Config
	dialect dialect
	prefix  string
	db      *sql.DB
	log     zerolog.Logger

	translate     LegacyTranslator
	legacyChecked atomic.Bool
	now           func() time.Time
}

var _ store.Implementation = (*Store)(nil)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(cfg Config, log zerolog.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = "gts_"
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 5 * time.Second
	}

	return &Store{
		cfg:       cfg,
		dialect:   d,
		prefix:    cfg.TablePrefix,
		log:       log.With().Str("component", "sqlstore").Str("driver", d.name).Logger(),
		translate: TranslateLegacyRow,
		now:       time.Now,
	}, nil
}

// NewWithDB usa uma conexão já aberta. Init ainda aplica o schema.
func NewWithDB(db *sql.DB, cfg Config, log zerolog.Logger) (*Store, error) {
	s, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// Open abre o pool com os limites configurados e verifica a conexão
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%s DSN is empty", d.name)
	}

	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if d.name == "sqlite" {
		// sqlite serializa escritas; uma conexão evita "database is locked"
		db.SetMaxOpenConns(1)
	} else if cfg.MaxPoolSize > 0 {
		db.SetMaxOpenConns(cfg.MaxPoolSize)
	}
	if cfg.MinIdle > 0 {
		db.SetMaxIdleConns(cfg.MinIdle)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s connection failed: %w", d.name, err)
	}
	return db, nil
}

func (s *Store) Name() string { return "sql" }

func (s *Store) Meta() store.Meta {
	return store.Meta{
		Name:    s.Name(),
		Driver:  s.dialect.name,
		Prefix:  s.prefix,
		Version: "1",
	}
}

// Init abre o pool, se necessário, e aplica o schema
func (s *Store) Init(ctx context.Context) error {
	if s.db == nil {
		db, err := Open(ctx, s.cfg)
		if err != nil {
			return err
		}
		s.db = db
	}

	created, err := s.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info().Int("created", created).Str("prefix", s.prefix).Msg("storage ready")
	return nil
}

func (s *Store) Shutdown() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetLegacyTranslator troca a tradução de linhas do formato antigo
func (s *Store) SetLegacyTranslator(fn LegacyTranslator) {
	s.translate = fn
}

// q substitui o prefixo e adapta a query ao dialeto
func (s *Store) q(query string) string {
	return s.dialect.rebind(strings.ReplaceAll(query, "{prefix}", s.prefix))
}

func (s *Store) table(name string) string {
	return s.prefix + name
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
