package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        firstname TEXT NOT NULL DEFAULT '',
        lastname TEXT NOT NULL DEFAULT '',
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS documents (
        name TEXT PRIMARY KEY, -- "<userId>.<ext>"
        data BLOB NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetUserByUsername(username string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, firstname, lastname, password_hash, created_at FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(username, firstName, lastName, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (username, firstname, lastname, password_hash) VALUES (?, ?, ?, ?)",
		username, firstName, lastName, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, firstname, lastname, password_hash, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Document blob methods. The documents table plays the role of a small
// key-value store: save overwrites by name, lookup is by name prefix.
func (s *SQLiteStore) SaveDocument(name string, data []byte) error {
	stmt, err := s.db.Prepare(`
        INSERT INTO documents (name, data, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare document upsert: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(name, data, time.Now()); err != nil {
		return fmt.Errorf("failed to execute document upsert: %w", err)
	}
	return nil
}

// GetDocumentByPrefix returns the most recently stored document whose name
// starts with the given prefix, or nil when the user has never uploaded.
func (s *SQLiteStore) GetDocumentByPrefix(prefix string) (*StoredDocument, error) {
	var doc StoredDocument
	err := s.db.QueryRow(`
        SELECT name, data, updated_at FROM documents
        WHERE name LIKE ? || '%'
        ORDER BY updated_at DESC
        LIMIT 1
    `, prefix).Scan(&doc.Name, &doc.Data, &doc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No document stored for this prefix
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}
