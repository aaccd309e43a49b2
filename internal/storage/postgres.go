package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"

	"kijko/pkg/logger"
	"kijko/pkg/model"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New PostgreSQL storage instance
func NewPostgresStorage(databaseURL string) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")

	return &PostgresStorage{pool: pool}, nil
}

// Executing database migrations
func runMigrations(databaseURL string) error {
	migrationsPath, err := filepath.Abs("migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// file URL form differs between Windows and Unix
	var migrationsURL string
	if runtime.GOOS == "windows" {
		u := &url.URL{
			Scheme: "file",
			Path:   filepath.ToSlash(migrationsPath),
		}
		migrationsURL = u.String()
	} else {
		migrationsURL = fmt.Sprintf("file://%s", migrationsPath)
	}

	logger.Info("Running migrations", zap.String("path", migrationsURL))

	db := stdlib.OpenDB(*parseConfig(databaseURL))
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationsURL,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// Parses database URL into pgx config
func parseConfig(databaseURL string) *pgx.ConnConfig {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal("Failed to parse database URL", zap.Error(err))
	}
	return config
}

// Closes the database connection pool
func (s *PostgresStorage) Close() {
	s.pool.Close()
}

// CreateSession inserts a new interview session
func (s *PostgresStorage) CreateSession(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, query,
		session.ID,
		session.Title,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSessionByID retrieves a session by its ID
func (s *PostgresStorage) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	query := `
		SELECT id, title, created_at, updated_at
		FROM sessions
		WHERE id = $1`

	var session model.Session
	row := s.pool.QueryRow(ctx, query, id)

	err := row.Scan(
		&session.ID,
		&session.Title,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// AppendMessage inserts a conversation message
func (s *PostgresStorage) AppendMessage(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, session_id, role, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		msg.ID,
		msg.SessionID,
		msg.Role,
		msg.Text,
		msg.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// ListMessages retrieves a session's messages in conversation order
func (s *PostgresStorage) ListMessages(ctx context.Context, sessionID string) ([]*model.Message, error) {
	query := `
		SELECT id, session_id, role, text, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		var msg model.Message
		err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Role,
			&msg.Text,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// CreateTask inserts a new transcription task
func (s *PostgresStorage) CreateTask(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (
			id, session_id, s3_key, status, operation_id,
			attempts, error_text, meta, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := s.pool.Exec(ctx, query,
		task.ID,
		task.SessionID,
		task.S3Key,
		task.Status,
		task.OperationID,
		task.Attempts,
		task.ErrorText,
		task.Meta,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTaskByID retrieves a task by its ID
func (s *PostgresStorage) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	query := `
		SELECT id, session_id, s3_key, status, operation_id,
		       attempts, error_text, meta, created_at, updated_at
		FROM tasks
		WHERE id = $1`

	var task model.Task
	row := s.pool.QueryRow(ctx, query, id)

	err := row.Scan(
		&task.ID,
		&task.SessionID,
		&task.S3Key,
		&task.Status,
		&task.OperationID,
		&task.Attempts,
		&task.ErrorText,
		&task.Meta,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("task not found")
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// UpdateTask updates a full task
func (s *PostgresStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tasks
		SET session_id = $2, s3_key = $3, status = $4, operation_id = $5,
		    attempts = $6, error_text = $7, meta = $8, updated_at = $9
		WHERE id = $1`

	result, err := s.pool.Exec(ctx, query,
		task.ID,
		task.SessionID,
		task.S3Key,
		task.Status,
		task.OperationID,
		task.Attempts,
		task.ErrorText,
		task.Meta,
		task.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}

// CreateTranscript inserts a new transcript
func (s *PostgresStorage) CreateTranscript(ctx context.Context, transcript *model.Transcript) error {
	query := `
		INSERT INTO transcripts (id, task_id, text, language, raw_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		transcript.ID,
		transcript.TaskID,
		transcript.Text,
		transcript.Language,
		transcript.RawResponse,
		transcript.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}

	return nil
}

// GetTranscriptByTaskID retrieves a transcript by task ID
func (s *PostgresStorage) GetTranscriptByTaskID(ctx context.Context, taskID string) (*model.Transcript, error) {
	query := `
		SELECT id, task_id, text, language, raw_response, created_at
		FROM transcripts
		WHERE task_id = $1`

	var transcript model.Transcript
	row := s.pool.QueryRow(ctx, query, taskID)

	err := row.Scan(
		&transcript.ID,
		&transcript.TaskID,
		&transcript.Text,
		&transcript.Language,
		&transcript.RawResponse,
		&transcript.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("transcript not found")
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	return &transcript, nil
}
