package sink

import (
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/TagSync/internal/domain"
)

func TestSQLSinkWriteBatchPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewSQLSink(db, DriverPostgres, "stimulations")
	events := []domain.Event{
		{RunID: "run-1", Seq: 1, Stimulation: domain.Stimulation{Identifier: domain.StimulationIncorrect, Date: 1 << 32, Duration: 5}},
		{RunID: "run-1", Seq: 2, Stimulation: domain.Stimulation{Identifier: 7, Date: 1 << 32}},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO stimulations (run_id, seq, identifier, date, duration) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10) ON CONFLICT (run_id, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("run-1", int64(1), int64(0x382), int64(1<<32), int64(5),
			"run-1", int64(2), int64(7), int64(1<<32), int64(0)).
		WillReturnResult(sqlmock.NewResult(2, 2))

	if err := sink.WriteBatch(events); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLSinkSQLitePlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewSQLSink(db, DriverSQLite, "stims")
	expectedQuery := regexp.QuoteMeta("INSERT INTO stims (run_id, seq, identifier, date, duration) VALUES (?,?,?,?,?) ON CONFLICT (run_id, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("r", int64(3), int64(9), int64(10), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.WriteBatch([]domain.Event{{RunID: "r", Seq: 3, Stimulation: domain.Stimulation{Identifier: 9, Date: 10}}}); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if sink.Name() != "sqlite3" {
		t.Fatalf("expected sink name sqlite3, got %s", sink.Name())
	}
}

func TestSQLSinkWriteBatchNoEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewSQLSink(db, DriverPostgres, "stimulations")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLSinkEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS stimulations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewSQLSink(db, DriverPostgres, "stimulations").EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenSQLUnsupportedDriver(t *testing.T) {
	if _, err := OpenSQL("oracle", "x"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	db, err := OpenSQL(DriverSQLite, t.TempDir()+"/stims.db")
	if err != nil {
		if strings.Contains(err.Error(), "CGO") {
			t.Skipf("sqlite3 driver unavailable: %v", err)
		}
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	sink := NewSQLSink(db, DriverSQLite, "stimulations")
	if err := sink.EnsureSchema(); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	batch := []domain.Event{
		{RunID: "run", Seq: 1, Stimulation: domain.Stimulation{Identifier: 1, Date: 100}},
		{RunID: "run", Seq: 2, Stimulation: domain.Stimulation{Identifier: 2, Date: 200}},
	}
	if err := sink.WriteBatch(batch); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	// replayed batch must not duplicate rows
	if err := sink.WriteBatch(batch); err != nil {
		t.Fatalf("replay batch: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM stimulations").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}
