package studypool

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the SQLite question store
type DB struct {
	db *sql.DB
}

// OpenDB opens a new database connection and creates the schema
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; keeps per-document transactions strictly sequential
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &DB{db: db}
	if err := store.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// CloseDB closes the database connection
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			description TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			question_text TEXT NOT NULL COLLATE NOCASE,
			correct_answer TEXT NOT NULL,
			wrong_answers TEXT NOT NULL,
			category TEXT NOT NULL COLLATE NOCASE,
			source_file TEXT,
			content_hash TEXT NOT NULL UNIQUE,
			times_used INTEGER NOT NULL DEFAULT 0,
			last_used DATETIME,
			success_rate REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			UNIQUE (question_text, category)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions (category)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// EnsureCategories inserts any taxonomy category missing from the categories table
func (db *DB) EnsureCategories(ctx context.Context, taxonomy *Taxonomy) error {
	for _, c := range taxonomy.Categories() {
		_, err := db.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO categories (id, name, description, created_at) VALUES (?, ?, ?, ?)",
			uuid.NewString(), c.Name, c.Description, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to ensure category %s: %w", c.Name, err)
		}
	}

	names, err := db.CategoryNames(ctx)
	if err != nil {
		return err
	}
	stored := make(map[string]bool, len(names))
	for _, n := range names {
		stored[strings.ToLower(n)] = true
	}
	for _, c := range taxonomy.Categories() {
		if !stored[strings.ToLower(c.Name)] {
			return fmt.Errorf("category %s missing after seeding", c.Name)
		}
	}
	return nil
}

// CategoryNames returns the names stored in the categories table
func (db *DB) CategoryNames(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, "SELECT name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return names, nil
}

// SaveQuestions inserts questions in one transaction. Rows rejected by the
// content_hash or (question_text, category) constraints are reported as
// duplicates; any other failure rolls the whole call back.
func (db *DB) SaveQuestions(ctx context.Context, source string, questions []Question) (SaveResult, error) {
	var res SaveResult

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO questions
			(id, question_text, correct_answer, wrong_answers, category, source_file, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return res, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, q := range questions {
		if q.ContentHash == "" {
			q.ContentHash = ContentHash(q)
		}
		if q.SourceFile == "" {
			q.SourceFile = source
		}

		wrongJSON, err := OptionsToJSON(q.WrongAnswers)
		if err != nil {
			return SaveResult{}, err
		}

		result, err := stmt.ExecContext(ctx,
			uuid.NewString(), q.QuestionText, q.CorrectAnswer, wrongJSON, q.Category, q.SourceFile, q.ContentHash, now,
		)
		if err != nil {
			return SaveResult{}, fmt.Errorf("failed to insert question: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return SaveResult{}, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			res.Duplicates = append(res.Duplicates, q)
			continue
		}
		res.Inserted = append(res.Inserted, q)
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("failed to commit questions: %w", err)
	}
	return res, nil
}

// CountByCategory returns the number of persisted questions in a category
func (db *DB) CountByCategory(ctx context.Context, category string) (int, error) {
	var n int
	err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions WHERE category = ?", category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

// CategoryCounts returns question counts per category
func (db *DB) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	rows, err := db.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM questions GROUP BY category ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return counts, nil
}

// Questions retrieves the questions of a category in insertion order; an
// empty category returns all of them.
func (db *DB) Questions(ctx context.Context, category string) ([]Question, error) {
	query := `SELECT question_text, correct_answer, wrong_answers, category, source_file, content_hash
		FROM questions`
	var args []interface{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY rowid"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var (
			q         Question
			wrongJSON string
			source    sql.NullString
		)
		if err := rows.Scan(&q.QuestionText, &q.CorrectAnswer, &wrongJSON, &q.Category, &source, &q.ContentHash); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if q.WrongAnswers, err = JSONToOptions(wrongJSON); err != nil {
			return nil, err
		}
		q.SourceFile = source.String
		questions = append(questions, q)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

// OptionsToJSON converts an answer slice to a JSON string
func OptionsToJSON(options []string) (string, error) {
	if options == nil {
		options = []string{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

// JSONToOptions converts a JSON string to an answer slice
func JSONToOptions(optionsJSON string) ([]string, error) {
	var options []string
	err := json.Unmarshal([]byte(optionsJSON), &options)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
