package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSource reads a snapshot from a SQLite bundle. Array-valued columns
// (process arguments, socket fds, interface addresses) are stored as JSON
// text. Like the JSON source, the parse happens once and is memoized.
type SQLiteSource struct {
	path string
	db   *sql.DB

	once sync.Once
	snap *Snapshot
	err  error
}

// NewSQLiteSource opens the bundle database read-only.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	return &SQLiteSource{path: path, db: db}, nil
}

// Snapshot loads every table of the bundle.
func (s *SQLiteSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.once.Do(func() {
		snap, err := s.load(ctx)
		if err != nil {
			s.err = fmt.Errorf("loading snapshot %s: %w", s.path, err)
			return
		}
		s.snap = snap
	})
	return s.snap, s.err
}

// Path returns the bundle path.
func (s *SQLiteSource) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := s.loadMeta(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadProcesses(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadUsers(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadOpenFiles(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadSockets(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadInterfaces(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *SQLiteSource) loadMeta(ctx context.Context, snap *Snapshot) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT hostname, platform, captured_at FROM meta LIMIT 1`)

	var captured string
	err := row.Scan(&snap.Hostname, &snap.Platform, &captured)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scanning meta: %w", err)
	}

	if t, perr := time.Parse(time.RFC3339, captured); perr == nil {
		snap.CapturedAt = t
	}
	return nil
}

func (s *SQLiteSource) loadProcesses(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pid, ppid, uid, command, arguments FROM processes ORDER BY pid`)
	if err != nil {
		return fmt.Errorf("querying processes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec ProcessRecord
		var args sql.NullString
		if err := rows.Scan(&rec.PID, &rec.PPID, &rec.UID, &rec.Command, &args); err != nil {
			return fmt.Errorf("scanning process: %w", err)
		}
		if args.Valid && args.String != "" {
			if err := json.Unmarshal([]byte(args.String), &rec.Arguments); err != nil {
				return fmt.Errorf("parsing arguments for pid %d: %w", rec.PID, err)
			}
		}
		snap.Processes = append(snap.Processes, rec)
	}
	return rows.Err()
}

func (s *SQLiteSource) loadUsers(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid, username, home, real_name FROM users ORDER BY uid`)
	if err != nil {
		return fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec UserRecord
		var home, realName sql.NullString
		if err := rows.Scan(&rec.UID, &rec.Username, &home, &realName); err != nil {
			return fmt.Errorf("scanning user: %w", err)
		}
		rec.Home = home.String
		rec.RealName = realName.String
		snap.Users = append(snap.Users, rec)
	}
	return rows.Err()
}

func (s *SQLiteSource) loadOpenFiles(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pid, fd, path, flags FROM open_files ORDER BY pid, fd`)
	if err != nil {
		return fmt.Errorf("querying open files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec OpenFileRecord
		var flags sql.NullString
		if err := rows.Scan(&rec.PID, &rec.FD, &rec.Path, &flags); err != nil {
			return fmt.Errorf("scanning open file: %w", err)
		}
		rec.Flags = flags.String
		snap.OpenFiles = append(snap.OpenFiles, rec)
	}
	return rows.Err()
}

func (s *SQLiteSource) loadSockets(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT inode, pid, fds, proto, family, state, source, destination
		   FROM sockets ORDER BY inode`)
	if err != nil {
		return fmt.Errorf("querying sockets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec SocketRecord
		var fds, state, src, dst sql.NullString
		if err := rows.Scan(&rec.Inode, &rec.PID, &fds, &rec.Proto, &rec.Family, &state, &src, &dst); err != nil {
			return fmt.Errorf("scanning socket: %w", err)
		}
		if fds.Valid && fds.String != "" {
			if err := json.Unmarshal([]byte(fds.String), &rec.FDs); err != nil {
				return fmt.Errorf("parsing fds for inode %d: %w", rec.Inode, err)
			}
		}
		rec.State = state.String
		rec.Source = src.String
		rec.Destination = dst.String
		snap.Sockets = append(snap.Sockets, rec)
	}
	return rows.Err()
}

func (s *SQLiteSource) loadInterfaces(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, addresses FROM interfaces ORDER BY name`)
	if err != nil {
		return fmt.Errorf("querying interfaces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec InterfaceRecord
		var addrs sql.NullString
		if err := rows.Scan(&rec.Name, &addrs); err != nil {
			return fmt.Errorf("scanning interface: %w", err)
		}
		if addrs.Valid && addrs.String != "" {
			if err := json.Unmarshal([]byte(addrs.String), &rec.Addresses); err != nil {
				return fmt.Errorf("parsing addresses for %s: %w", rec.Name, err)
			}
		}
		snap.Interfaces = append(snap.Interfaces, rec)
	}
	return rows.Err()
}
