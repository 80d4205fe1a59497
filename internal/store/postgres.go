package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/venturesight/dealdesk/internal/db"
	"github.com/venturesight/dealdesk/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_document":        `SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at FROM pitch_decks WHERE id = $1`,
	"set_document_status": `UPDATE pitch_decks SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_analysis":        `SELECT document_id, optimist, skeptic, quant, consensus, research, created_at FROM council_analyses WHERE document_id = $1`,
	"list_chunks":         `SELECT id, document_id, content, embedding, source FROM deck_chunks WHERE document_id = $1 ORDER BY id`,
	"append_message":      `INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pitch_decks (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL,
	filename     TEXT NOT NULL,
	startup_name TEXT NOT NULL DEFAULT '',
	raw_text     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	fingerprint  TEXT NOT NULL,
	match_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	enrichment   JSONB NOT NULL DEFAULT '{}',
	notes        TEXT NOT NULL DEFAULT '',
	uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_decks_user ON pitch_decks(user_id);
CREATE INDEX IF NOT EXISTS idx_decks_user_fingerprint ON pitch_decks(user_id, fingerprint);
CREATE INDEX IF NOT EXISTS idx_decks_user_name ON pitch_decks(user_id, lower(startup_name));
CREATE INDEX IF NOT EXISTS idx_decks_status ON pitch_decks(status);

CREATE TABLE IF NOT EXISTS council_analyses (
	document_id TEXT PRIMARY KEY REFERENCES pitch_decks(id) ON DELETE CASCADE,
	optimist    TEXT NOT NULL DEFAULT '',
	skeptic     TEXT NOT NULL DEFAULT '',
	quant       TEXT NOT NULL DEFAULT '',
	consensus   JSONB NOT NULL DEFAULT '{}',
	research    JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS deck_chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES pitch_decks(id) ON DELETE CASCADE,
	content     TEXT NOT NULL,
	embedding   REAL[],
	source      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON deck_chunks(document_id);

CREATE TABLE IF NOT EXISTS vc_thesis (
	user_id         TEXT PRIMARY KEY,
	thesis_text     TEXT NOT NULL DEFAULT '',
	target_sectors  JSONB NOT NULL DEFAULT '[]',
	geography       TEXT NOT NULL DEFAULT '',
	check_size_min  BIGINT NOT NULL DEFAULT 0,
	check_size_max  BIGINT NOT NULL DEFAULT 0,
	preferred_stage TEXT NOT NULL DEFAULT '',
	anti_thesis     TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id     TEXT NOT NULL,
	document_id TEXT REFERENCES pitch_decks(id) ON DELETE CASCADE,
	title       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Documents

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	doc.UploadedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = model.StatusPending
	}

	enrichmentJSON, err := json.Marshal(doc.Enrichment)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO pitch_decks (id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		doc.ID, doc.UserID, doc.Filename, doc.Name, doc.RawText, string(doc.Status),
		doc.Fingerprint, doc.MatchScore, enrichmentJSON, doc.Notes, doc.UploadedAt, doc.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert document")
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
		 FROM pitch_decks WHERE id = $1`,
		id,
	)
	doc, err := scanDocumentPG(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get document %s", id)
	}
	return doc, nil
}

func (s *PostgresStore) GetDocumentByFingerprint(ctx context.Context, userID, fingerprint string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
		 FROM pitch_decks
		 WHERE user_id = $1 AND fingerprint = $2 AND status != 'archived'
		 ORDER BY uploaded_at DESC LIMIT 1`,
		userID, fingerprint,
	)
	doc, err := scanDocumentPG(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get document by fingerprint")
	}
	return doc, nil
}

func (s *PostgresStore) GetDocumentByName(ctx context.Context, userID, name, excludeID string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
		 FROM pitch_decks
		 WHERE user_id = $1 AND lower(startup_name) = lower($2) AND id != $3 AND status != 'archived'
		 ORDER BY uploaded_at DESC LIMIT 1`,
		userID, name, excludeID,
	)
	doc, err := scanDocumentPG(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get document by name")
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
	          FROM pitch_decks WHERE true`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	} else if !filter.IncludeArchived {
		query += ` AND status != 'archived'`
	}
	query += ` ORDER BY uploaded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocumentPG(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) SetDocumentStatus(ctx context.Context, id string, status model.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pitch_decks SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set document status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateDocumentExtraction(ctx context.Context, doc *model.Document) error {
	enrichmentJSON, err := json.Marshal(doc.Enrichment)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE pitch_decks
		 SET startup_name = $1, raw_text = $2, fingerprint = $3, filename = $4, enrichment = $5, status = $6, updated_at = $7
		 WHERE id = $8`,
		doc.Name, doc.RawText, doc.Fingerprint, doc.Filename, enrichmentJSON,
		string(doc.Status), time.Now().UTC(), doc.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document extraction %s", doc.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", doc.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateDocumentEnrichment(ctx context.Context, id string, enrichment model.Enrichment, matchScore float64) error {
	enrichmentJSON, err := json.Marshal(enrichment)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE pitch_decks SET enrichment = $1, match_score = $2, updated_at = $3 WHERE id = $4`,
		enrichmentJSON, matchScore, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateDocumentNotes(ctx context.Context, id, notes string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pitch_decks SET notes = $1, updated_at = $2 WHERE id = $3`,
		notes, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document notes %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	// Chunks, analyses, pinned conversations and their messages cascade.
	tag, err := s.pool.Exec(ctx, `DELETE FROM pitch_decks WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete document %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", id)
	}
	return nil
}

// Analyses

func (s *PostgresStore) UpsertAnalysis(ctx context.Context, a *model.Analysis) error {
	consensusJSON, err := json.Marshal(a.Consensus)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal consensus")
	}
	researchJSON, err := json.Marshal(a.Research)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal research")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO council_analyses (document_id, optimist, skeptic, quant, consensus, research, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (document_id) DO UPDATE SET
		   optimist = $2, skeptic = $3, quant = $4, consensus = $5, research = $6, created_at = $7`,
		a.DocumentID, a.Optimist, a.Skeptic, a.Quant, consensusJSON, researchJSON, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: upsert analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error) {
	var a model.Analysis
	var consensusJSON, researchJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT document_id, optimist, skeptic, quant, consensus, research, created_at
		 FROM council_analyses WHERE document_id = $1`,
		documentID,
	).Scan(&a.DocumentID, &a.Optimist, &a.Skeptic, &a.Quant, &consensusJSON, &researchJSON, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", documentID)
	}

	if err := json.Unmarshal(consensusJSON, &a.Consensus); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal consensus")
	}
	if err := json.Unmarshal(researchJSON, &a.Research); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal research")
	}
	return &a, nil
}

// Chunks

func (s *PostgresStore) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	rows := make([][]any, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, []any{c.ID, c.DocumentID, c.Content, c.Embedding, c.Source})
	}

	_, err := db.CopyFrom(ctx, s.pool, "deck_chunks",
		[]string{"id", "document_id", "content", "embedding", "source"}, rows)
	return eris.Wrap(err, "postgres: insert chunks")
}

func (s *PostgresStore) ListChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, content, embedding, source FROM deck_chunks WHERE document_id = $1 ORDER BY id`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list chunks")
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Embedding, &c.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chunk")
		}
		chunks = append(chunks, c)
	}
	return chunks, eris.Wrap(rows.Err(), "postgres: list chunks iterate")
}

func (s *PostgresStore) SearchChunkText(ctx context.Context, documentID, term string, limit int) ([]model.Chunk, error) {
	if limit <= 0 {
		limit = 8
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, content, embedding, source FROM deck_chunks
		 WHERE document_id = $1 AND content ILIKE '%' || $2 || '%'
		 ORDER BY id LIMIT $3`,
		documentID, term, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search chunk text")
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Embedding, &c.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chunk")
		}
		chunks = append(chunks, c)
	}
	return chunks, eris.Wrap(rows.Err(), "postgres: search chunk text iterate")
}

func (s *PostgresStore) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM deck_chunks WHERE document_id = $1`, documentID)
	return eris.Wrap(err, "postgres: delete chunks")
}

// Thesis

func (s *PostgresStore) GetThesis(ctx context.Context, userID string) (*model.Thesis, error) {
	var t model.Thesis
	var sectorsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, thesis_text, target_sectors, geography, check_size_min, check_size_max, preferred_stage, anti_thesis, updated_at
		 FROM vc_thesis WHERE user_id = $1`,
		userID,
	).Scan(&t.UserID, &t.Text, &sectorsJSON, &t.Geography, &t.CheckSizeMin, &t.CheckSizeMax, &t.PreferredStage, &t.AntiThesis, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get thesis")
	}

	if err := json.Unmarshal(sectorsJSON, &t.TargetSectors); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target sectors")
	}
	return &t, nil
}

func (s *PostgresStore) UpsertThesis(ctx context.Context, t *model.Thesis) error {
	sectorsJSON, err := json.Marshal(t.TargetSectors)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal target sectors")
	}
	t.UpdatedAt = time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO vc_thesis (user_id, thesis_text, target_sectors, geography, check_size_min, check_size_max, preferred_stage, anti_thesis, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id) DO UPDATE SET
		   thesis_text = $2, target_sectors = $3, geography = $4, check_size_min = $5,
		   check_size_max = $6, preferred_stage = $7, anti_thesis = $8, updated_at = $9`,
		t.UserID, t.Text, sectorsJSON, t.Geography, t.CheckSizeMin, t.CheckSizeMax,
		t.PreferredStage, t.AntiThesis, t.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert thesis")
}

// Conversations

func (s *PostgresStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	var docID *string
	if c.DocumentID != "" {
		docID = &c.DocumentID
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, document_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, docID, c.Title, c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert conversation")
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	var docID *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, document_id, title, created_at, updated_at FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.UserID, &docID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get conversation %s", id)
	}
	if docID != nil {
		c.DocumentID = *docID
	}
	return &c, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, document_id, title, created_at, updated_at
		 FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list conversations")
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		var docID *string
		if err := rows.Scan(&c.ID, &c.UserID, &docID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan conversation")
		}
		if docID != nil {
			c.DocumentID = *docID
		}
		convs = append(convs, c)
	}
	return convs, eris.Wrap(rows.Err(), "postgres: list conversations iterate")
}

func (s *PostgresStore) AppendMessage(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert message")
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
		m.CreatedAt, m.ConversationID,
	)
	return eris.Wrap(err, "postgres: touch conversation")
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list messages")
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan message")
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list messages iterate")
	}

	// Fetched newest-first for the limit window; return chronological.
	reverseMessages(msgs)
	return msgs, nil
}

func reverseMessages(msgs []model.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

type pgScannable interface {
	Scan(dest ...any) error
}

func scanDocumentPG(row pgScannable) (*model.Document, error) {
	var doc model.Document
	var enrichmentJSON []byte

	err := row.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.Name, &doc.RawText,
		&doc.Status, &doc.Fingerprint, &doc.MatchScore, &enrichmentJSON,
		&doc.Notes, &doc.UploadedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(enrichmentJSON) > 0 {
		if err := json.Unmarshal(enrichmentJSON, &doc.Enrichment); err != nil {
			return nil, eris.Wrap(err, "unmarshal enrichment")
		}
	}
	return &doc, nil
}
