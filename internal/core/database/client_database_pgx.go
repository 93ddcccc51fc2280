package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/docqa/server/internal/config"
	"github.com/docqa/server/internal/models"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("not found")

type DatabaseClient struct {
	db *sql.DB
}

// nullableTime maps Go's zero time to SQL NULL so COALESCE defaults apply.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// DB exposes the underlying pool for components that share it (vector store).
func (c *DatabaseClient) DB() *sql.DB { return c.db }

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents (id, name, file_name, file_path, suffix, vectorized, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Name, doc.FileName, doc.FilePath, doc.Suffix, doc.Vectorized, nullableTime(doc.CreatedAt))
	return err
}

func (c *DatabaseClient) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		UPDATE documents
		SET name = $2, file_name = $3, file_path = $4, suffix = $5, vectorized = $6
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Name, doc.FileName, doc.FilePath, doc.Suffix, doc.Vectorized)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", doc.ID)
	}
	return nil
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	const q = `
		SELECT id, name, file_name, file_path, suffix, vectorized, created_at
		FROM documents WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.Name, &d.FileName, &d.FilePath, &d.Suffix, &d.Vectorized, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) PageDocuments(ctx context.Context, params models.DocumentQuery) (*models.DocumentPage, error) {
	pageNum, pageSize := params.PageNum, params.PageSize
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	filter := "%" + params.Name + "%"

	var total int
	if err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM documents WHERE name ILIKE $1`, filter).Scan(&total); err != nil {
		return nil, err
	}

	const q = `
		SELECT id, name, file_name, file_path, suffix, vectorized, created_at
		FROM documents
		WHERE name ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := c.db.QueryContext(ctx, q, filter, pageSize, (pageNum-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Document, 0, pageSize)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.FileName, &d.FilePath, &d.Suffix, &d.Vectorized, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &models.DocumentPage{Total: total, PageNum: pageNum, PageSize: pageSize, List: list}, nil
}

func (c *DatabaseClient) MarkAllDocumentsVectorized(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `UPDATE documents SET vectorized = TRUE`)
	return err
}

// Chat sessions

func (c *DatabaseClient) CreateChatSession(ctx context.Context, s *models.ChatSession) error {
	if s == nil {
		return errors.New("nil session")
	}
	const q = `
		INSERT INTO chat_sessions (id, title, created_at)
		VALUES ($1, $2, COALESCE($3, now()))
	`
	_, err := c.db.ExecContext(ctx, q, s.ID, s.Title, nullableTime(s.CreatedAt))
	return err
}

func (c *DatabaseClient) ListChatSessions(ctx context.Context) ([]models.ChatSession, error) {
	const q = `SELECT id, title, created_at FROM chat_sessions ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateChatSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE chat_sessions SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("chat session not found: %s", id)
	}
	return nil
}

// DeleteChatSession removes the session; history rows cascade.
func (c *DatabaseClient) DeleteChatSession(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	return err
}

// Chat history

func (c *DatabaseClient) AppendChatHistory(ctx context.Context, h *models.ChatHistory) error {
	if h == nil {
		return errors.New("nil history record")
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	const q = `
		INSERT INTO chat_history (id, role, content, think, chat_session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q, h.ID, h.Role, h.Content, h.Think, h.ChatSessionID, nullableTime(h.CreatedAt))
	return err
}

func (c *DatabaseClient) ListHistoryBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ChatHistory, error) {
	const q = `
		SELECT id, role, content, think, chat_session_id, created_at
		FROM chat_history
		WHERE chat_session_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatHistory
	for rows.Next() {
		var h models.ChatHistory
		if err := rows.Scan(&h.ID, &h.Role, &h.Content, &h.Think, &h.ChatSessionID, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Model config

func (c *DatabaseClient) CreateModelConfig(ctx context.Context, m *models.ModelConfig) error {
	if m == nil {
		return errors.New("nil model config")
	}
	const q = `
		INSERT INTO model_config
			(id, config_type, provider, model_name, api_key, base_url, is_active, remark, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), COALESCE($10, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		m.ID, m.ConfigType, m.Provider, m.ModelName, m.APIKey, m.BaseURL, m.IsActive, m.Remark,
		nullableTime(m.CreatedAt), nullableTime(m.UpdatedAt))
	return err
}

func (c *DatabaseClient) UpdateModelConfig(ctx context.Context, m *models.ModelConfig) error {
	if m == nil {
		return errors.New("nil model config")
	}
	const q = `
		UPDATE model_config
		SET config_type = $2, provider = $3, model_name = $4, api_key = $5,
		    base_url = $6, remark = $7, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		m.ID, m.ConfigType, m.Provider, m.ModelName, m.APIKey, m.BaseURL, m.Remark)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("model config not found: %s", m.ID)
	}
	return nil
}

func (c *DatabaseClient) DeleteModelConfig(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM model_config WHERE id = $1`, id)
	return err
}

func (c *DatabaseClient) ListModelConfigs(ctx context.Context) ([]models.ModelConfig, error) {
	const q = `
		SELECT id, config_type, provider, model_name, api_key, base_url, is_active, remark, created_at, updated_at
		FROM model_config
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ModelConfig
	for rows.Next() {
		var m models.ModelConfig
		if err := rows.Scan(&m.ID, &m.ConfigType, &m.Provider, &m.ModelName, &m.APIKey, &m.BaseURL, &m.IsActive, &m.Remark, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetActiveModelConfig(ctx context.Context, configType string) (*models.ModelConfig, error) {
	const q = `
		SELECT id, config_type, provider, model_name, api_key, base_url, is_active, remark, created_at, updated_at
		FROM model_config
		WHERE config_type = $1 AND is_active
		LIMIT 1
	`
	var m models.ModelConfig
	err := c.db.QueryRowContext(ctx, q, configType).Scan(
		&m.ID, &m.ConfigType, &m.Provider, &m.ModelName, &m.APIKey, &m.BaseURL, &m.IsActive, &m.Remark, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ActivateModelConfig marks one config active and clears the flag on every
// other config of the same type, in one transaction.
func (c *DatabaseClient) ActivateModelConfig(ctx context.Context, id uuid.UUID) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var configType string
	if err := tx.QueryRowContext(ctx, `SELECT config_type FROM model_config WHERE id = $1`, id).Scan(&configType); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return fmt.Errorf("model config not found: %s", id)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE model_config SET is_active = FALSE, updated_at = now() WHERE config_type = $1`, configType); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE model_config SET is_active = TRUE, updated_at = now() WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
