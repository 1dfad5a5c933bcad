package splitstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/Noofbiz/framesets/datasets"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run describes how a stored split was produced.
type Run struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	CreatedAt  time.Time        `json:"created_at" yaml:"created_at"`
	Seed       uint64           `json:"seed" yaml:"seed"`
	TrainRatio float64          `json:"train_ratio" yaml:"train_ratio"`
	ValidRatio float64          `json:"valid_ratio" yaml:"valid_ratio"`
	Options    datasets.Options `json:"options" yaml:"options"`
}

// Summary is a stored run with its per-phase sample counts.
type Summary struct {
	Run
	Train     int
	Valid     int
	Test      int
	Positives int
	Fallback  bool
}

// Store persists splits in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores run and its phases in one transaction.
func (s *Store) Save(ctx context.Context, run Run, p Phases) error {
	if run.ID == "" {
		return errors.New("save run: id is required")
	}
	opts, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, created_at, seed, train_ratio, valid_ratio, fallback, options_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Name,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		int64(run.Seed),
		run.TrainRatio,
		run.ValidRatio,
		p.Fallback,
		string(opts),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, phase, position, source, range_start, range_end, sample_index, label)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, phase := range []string{PhaseTrain, PhaseValid, PhaseTest} {
		refs, _ := p.ByName(phase)
		for pos, r := range refs {
			if _, err := stmt.ExecContext(ctx, run.ID, phase, pos, r.Source, r.Range.Start, r.Range.End, r.Index, r.Label); err != nil {
				return fmt.Errorf("insert %s sample %d: %w", phase, pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// Load returns a stored run and its phases in their saved order.
func (s *Store) Load(ctx context.Context, id string) (Run, Phases, error) {
	run, fallback, err := s.run(ctx, id)
	if err != nil {
		return Run{}, Phases{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT phase, source, range_start, range_end, sample_index, label
         FROM samples WHERE run_id = ? ORDER BY phase, position`, id)
	if err != nil {
		return Run{}, Phases{}, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	p := Phases{Fallback: fallback}
	for rows.Next() {
		var (
			phase string
			r     datasets.Ref
		)
		if err := rows.Scan(&phase, &r.Source, &r.Range.Start, &r.Range.End, &r.Index, &r.Label); err != nil {
			return Run{}, Phases{}, fmt.Errorf("scan sample: %w", err)
		}
		switch phase {
		case PhaseTrain:
			p.Train = append(p.Train, r)
		case PhaseValid:
			p.Valid = append(p.Valid, r)
		case PhaseTest:
			p.Test = append(p.Test, r)
		default:
			return Run{}, Phases{}, fmt.Errorf("run %s: unknown phase %q", id, phase)
		}
	}
	if err := rows.Err(); err != nil {
		return Run{}, Phases{}, fmt.Errorf("iterate samples: %w", err)
	}
	return run, p, nil
}

func (s *Store) run(ctx context.Context, id string) (Run, bool, error) {
	var (
		run      Run
		created  string
		seed     int64
		fallback bool
		opts     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, seed, train_ratio, valid_ratio, fallback, options_json
         FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Name, &created, &seed, &run.TrainRatio, &run.ValidRatio, &fallback, &opts)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("query run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, false, fmt.Errorf("parse created_at of run %s: %w", id, err)
	}
	run.Seed = uint64(seed)
	if err := json.Unmarshal([]byte(opts), &run.Options); err != nil {
		return Run{}, false, fmt.Errorf("decode options of run %s: %w", id, err)
	}
	return run, fallback, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id,
               COALESCE(SUM(CASE WHEN s.phase = 'train' THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN s.phase = 'valid' THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN s.phase = 'test' THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN s.label > 0 THEN 1 ELSE 0 END), 0)
        FROM runs r LEFT JOIN samples s ON s.run_id = r.id
        GROUP BY r.id
        ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Train, &sum.Valid, &sum.Test, &sum.Positives); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, sum)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range out {
		run, fallback, err := s.run(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Run = run
		out[i].Fallback = fallback
	}
	return out, nil
}

// Delete removes a run and its samples.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
