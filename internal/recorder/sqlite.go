package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"TrendBands/internal/model"
)

// SQLiteRecorder persists fit history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logrus.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fit_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			currency   TEXT NOT NULL,
			model      TEXT NOT NULL,
			tau        REAL NOT NULL,
			p1         REAL,
			p2         REAL,
			p3         REAL,
			p4         REAL,
			samples    INTEGER,
			crossings  INTEGER,
			last_date  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fit_runs_ts ON fit_runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_fit_runs_cur ON fit_runs(currency, tau)`,

		`CREATE TABLE IF NOT EXISTS band_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			currency   TEXT NOT NULL,
			date       TEXT NOT NULL,
			price      REAL,
			lower      REAL,
			median     REAL,
			upper      REAL,
			position   REAL,
			rsi        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_band_snapshots_ts ON band_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps NaN and Inf to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (r *SQLiteRecorder) RecordFit(evt *FitEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	params := make([]sql.NullFloat64, 4)
	for i := 0; i < len(evt.Params) && i < 4; i++ {
		params[i] = nullable(evt.Params[i])
	}

	_, err := r.db.Exec(`INSERT INTO fit_runs
		(timestamp, currency, model, tau, p1, p2, p3, p4, samples, crossings, last_date)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Currency, evt.Model, evt.Tau,
		params[0], params[1], params[2], params[3],
		evt.Samples, evt.Crossings, evt.LastDate.Format(model.DateLayout),
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap *model.BandSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO band_snapshots
		(timestamp, currency, date, price, lower, median, upper, position, rsi)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), snap.Currency, snap.Date.Format(model.DateLayout),
		nullable(snap.Price), nullable(snap.Lower), nullable(snap.Median),
		nullable(snap.Upper), nullable(snap.Position), nullable(snap.RSI),
	)
	return err
}

// LatestFit returns the most recently recorded parameters for a currency and
// quantile. It reports false when nothing has been recorded.
func (r *SQLiteRecorder) LatestFit(currency string, tau float64) (*FitEvent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(`SELECT model, p1, p2, p3, p4, samples, crossings, last_date
		FROM fit_runs WHERE currency = ? AND tau = ? ORDER BY id DESC LIMIT 1`, currency, tau)

	var (
		evt      = FitEvent{Currency: currency, Tau: tau}
		p        [4]sql.NullFloat64
		lastDate string
	)
	err := row.Scan(&evt.Model, &p[0], &p[1], &p[2], &p[3], &evt.Samples, &evt.Crossings, &lastDate)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	n := 2
	if evt.Model == "powerlaw" {
		n = 4
	}
	for i := 0; i < n; i++ {
		v := math.NaN()
		if p[i].Valid {
			v = p[i].Float64
		}
		evt.Params = append(evt.Params, v)
	}
	if t, err := time.Parse(model.DateLayout, lastDate); err == nil {
		evt.LastDate = t
	}
	return &evt, true, nil
}

func (r *SQLiteRecorder) Close() error {
	logrus.Info("closing sqlite recorder")
	return r.db.Close()
}
