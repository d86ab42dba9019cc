package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

// Drivers understood by SQLSink.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// SQLSink writes stimulation events into a relational table keyed by
// (run_id, seq). Replayed events are ignored by the conflict clause.
type SQLSink struct {
	db        *sql.DB
	driver    string
	tableName string
}

func NewSQLSink(db *sql.DB, driver, table string) *SQLSink {
	return &SQLSink{db: db, driver: driver, tableName: table}
}

func (s *SQLSink) Name() string { return s.driver }

func (s *SQLSink) placeholder(n int) string {
	if s.driver == DriverSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// EnsureSchema creates the target table when it is missing.
func (s *SQLSink) EnsureSchema() error {
	stmt := "CREATE TABLE IF NOT EXISTS " + s.tableName + ` (
	run_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	identifier BIGINT NOT NULL,
	date BIGINT NOT NULL,
	duration BIGINT NOT NULL,
	PRIMARY KEY (run_id, seq)
)`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create table %s: %w", s.tableName, err)
	}
	return nil
}

func (s *SQLSink) WriteBatch(events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.tableName)
	b.WriteString(" (run_id, seq, identifier, date, duration) VALUES ")

	// identifiers and fixed-point times are stored bit-for-bit in signed BIGINT columns
	args := make([]any, 0, len(events)*5)
	for i, e := range events {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		b.WriteString("(")
		for k := 1; k <= 5; k++ {
			if k > 1 {
				b.WriteString(",")
			}
			b.WriteString(s.placeholder(n + k))
		}
		b.WriteString(")")

		args = append(args,
			e.RunID,
			int64(e.Seq),
			int64(e.Identifier),
			int64(e.Date),
			int64(e.Duration),
		)
	}

	b.WriteString(" ON CONFLICT (run_id, seq) DO NOTHING")

	_, err := s.db.Exec(b.String(), args...)
	return err
}

var _ ports.Sink = (*SQLSink)(nil)
