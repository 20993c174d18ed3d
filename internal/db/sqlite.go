package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/subpipe/backend/internal/auth"
	"github.com/subpipe/backend/internal/db/models"
)

type Database struct {
	db *sql.DB
}

func NewSQLite(path string) (*Database, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	if err := d.migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		ok INTEGER NOT NULL DEFAULT 0,
		params TEXT NOT NULL,
		result TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *Database) EnsureAdmin(username, password string) error {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(
		"INSERT INTO users (username, password, role) VALUES (?, ?, 'admin')",
		username, hash,
	)
	return err
}

func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *Database) GetUserByID(id int64) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetSetting returns a setting value by key, or defaultVal if not set
func (d *Database) GetSetting(key, defaultVal string) string {
	var val string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

// SetSetting upserts a setting
func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP`,
		key, value, value,
	)
	return err
}

// GetAllSettings returns all settings as a map
func (d *Database) GetAllSettings() (map[string]string, error) {
	rows, err := d.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, nil
}

// RunRow is a persisted pipeline run. Result holds the latest published
// RunResult snapshot as JSON.
type RunRow struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	OK        bool      `json:"ok"`
	Params    string    `json:"params,omitempty"`
	Result    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Database) InsertRun(id, provider, params string) error {
	_, err := d.db.Exec(
		"INSERT INTO runs (id, provider, params) VALUES (?, ?, ?)",
		id, provider, params,
	)
	return err
}

func (d *Database) UpdateRunResult(id, status string, ok bool, result string) error {
	_, err := d.db.Exec(
		"UPDATE runs SET status = ?, ok = ?, result = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, ok, result, id,
	)
	return err
}

func (d *Database) GetRun(id string) (*RunRow, error) {
	row := &RunRow{}
	var result sql.NullString
	err := d.db.QueryRow(
		"SELECT id, provider, status, ok, params, result, created_at, updated_at FROM runs WHERE id = ?",
		id,
	).Scan(&row.ID, &row.Provider, &row.Status, &row.OK, &row.Params, &result, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if result.Valid {
		row.Result = result.String
	}
	return row, nil
}

// ListRuns returns all runs ordered by creation time (newest first). The
// result blob is omitted; fetch a single run for the full snapshot.
func (d *Database) ListRuns() ([]RunRow, error) {
	rows, err := d.db.Query(
		"SELECT id, provider, status, ok, created_at, updated_at FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.Status, &row.OK, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, row)
	}
	return runs, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB for use by other packages
func (d *Database) DB() *sql.DB {
	return d.db
}
