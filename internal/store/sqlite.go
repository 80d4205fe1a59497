package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/venturesight/dealdesk/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Embeddings are
// stored as JSON arrays; similarity ranking happens in process either way,
// so the two backends behave identically from the retrieval layer's view.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pitch_decks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	filename     TEXT NOT NULL,
	startup_name TEXT NOT NULL DEFAULT '',
	raw_text     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'pending',
	fingerprint  TEXT NOT NULL,
	match_score  REAL NOT NULL DEFAULT 0,
	enrichment   TEXT NOT NULL DEFAULT '{}',
	notes        TEXT NOT NULL DEFAULT '',
	uploaded_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_decks_user ON pitch_decks(user_id);
CREATE INDEX IF NOT EXISTS idx_decks_user_fingerprint ON pitch_decks(user_id, fingerprint);
CREATE INDEX IF NOT EXISTS idx_decks_status ON pitch_decks(status);

CREATE TABLE IF NOT EXISTS council_analyses (
	document_id TEXT PRIMARY KEY REFERENCES pitch_decks(id) ON DELETE CASCADE,
	optimist    TEXT NOT NULL DEFAULT '',
	skeptic     TEXT NOT NULL DEFAULT '',
	quant       TEXT NOT NULL DEFAULT '',
	consensus   TEXT NOT NULL DEFAULT '{}',
	research    TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS deck_chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES pitch_decks(id) ON DELETE CASCADE,
	content     TEXT NOT NULL,
	embedding   TEXT,
	source      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON deck_chunks(document_id);

CREATE TABLE IF NOT EXISTS vc_thesis (
	user_id         TEXT PRIMARY KEY,
	thesis_text     TEXT NOT NULL DEFAULT '',
	target_sectors  TEXT NOT NULL DEFAULT '[]',
	geography       TEXT NOT NULL DEFAULT '',
	check_size_min  INTEGER NOT NULL DEFAULT 0,
	check_size_max  INTEGER NOT NULL DEFAULT 0,
	preferred_stage TEXT NOT NULL DEFAULT '',
	anti_thesis     TEXT NOT NULL DEFAULT '',
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS conversations (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	document_id TEXT REFERENCES pitch_decks(id) ON DELETE CASCADE,
	title       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Documents

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.Document) error {
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
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pitch_decks (id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, doc.Filename, doc.Name, doc.RawText, string(doc.Status),
		doc.Fingerprint, doc.MatchScore, string(enrichmentJSON), doc.Notes, doc.UploadedAt, doc.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert document")
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
		 FROM pitch_decks WHERE id = ?`,
		id,
	)
	return scanDocumentLite(row, "sqlite: get document")
}

func (s *SQLiteStore) GetDocumentByFingerprint(ctx context.Context, userID, fingerprint string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
		 FROM pitch_decks
		 WHERE user_id = ? AND fingerprint = ? AND status != 'archived'
		 ORDER BY uploaded_at DESC LIMIT 1`,
		userID, fingerprint,
	)
	return scanDocumentLite(row, "sqlite: get document by fingerprint")
}

func (s *SQLiteStore) GetDocumentByName(ctx context.Context, userID, name, excludeID string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
		 FROM pitch_decks
		 WHERE user_id = ? AND lower(startup_name) = lower(?) AND id != ? AND status != 'archived'
		 ORDER BY uploaded_at DESC LIMIT 1`,
		userID, name, excludeID,
	)
	return scanDocumentLite(row, "sqlite: get document by name")
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, user_id, filename, startup_name, raw_text, status, fingerprint, match_score, enrichment, notes, uploaded_at, updated_at
	          FROM pitch_decks WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	} else if !filter.IncludeArchived {
		query += ` AND status != 'archived'`
	}
	query += ` ORDER BY uploaded_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocumentLite(rows, "sqlite: scan document")
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) SetDocumentStatus(ctx context.Context, id string, status model.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pitch_decks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set document status %s", id)
	}
	return checkRowsAffected(res, "document", id)
}

func (s *SQLiteStore) UpdateDocumentExtraction(ctx context.Context, doc *model.Document) error {
	enrichmentJSON, err := json.Marshal(doc.Enrichment)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pitch_decks
		 SET startup_name = ?, raw_text = ?, fingerprint = ?, filename = ?, enrichment = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Name, doc.RawText, doc.Fingerprint, doc.Filename, string(enrichmentJSON),
		string(doc.Status), time.Now().UTC(), doc.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document extraction %s", doc.ID)
	}
	return checkRowsAffected(res, "document", doc.ID)
}

func (s *SQLiteStore) UpdateDocumentEnrichment(ctx context.Context, id string, enrichment model.Enrichment, matchScore float64) error {
	enrichmentJSON, err := json.Marshal(enrichment)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pitch_decks SET enrichment = ?, match_score = ?, updated_at = ? WHERE id = ?`,
		string(enrichmentJSON), matchScore, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document enrichment %s", id)
	}
	return checkRowsAffected(res, "document", id)
}

func (s *SQLiteStore) UpdateDocumentNotes(ctx context.Context, id, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pitch_decks SET notes = ?, updated_at = ? WHERE id = ?`,
		notes, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document notes %s", id)
	}
	return checkRowsAffected(res, "document", id)
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pitch_decks WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete document %s", id)
	}
	return checkRowsAffected(res, "document", id)
}

// Analyses

func (s *SQLiteStore) UpsertAnalysis(ctx context.Context, a *model.Analysis) error {
	consensusJSON, err := json.Marshal(a.Consensus)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal consensus")
	}
	researchJSON, err := json.Marshal(a.Research)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal research")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO council_analyses (document_id, optimist, skeptic, quant, consensus, research, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (document_id) DO UPDATE SET
		   optimist = excluded.optimist, skeptic = excluded.skeptic, quant = excluded.quant,
		   consensus = excluded.consensus, research = excluded.research, created_at = excluded.created_at`,
		a.DocumentID, a.Optimist, a.Skeptic, a.Quant, string(consensusJSON), string(researchJSON), a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error) {
	var a model.Analysis
	var consensusJSON, researchJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, optimist, skeptic, quant, consensus, research, created_at
		 FROM council_analyses WHERE document_id = ?`,
		documentID,
	).Scan(&a.DocumentID, &a.Optimist, &a.Skeptic, &a.Quant, &consensusJSON, &researchJSON, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", documentID)
	}

	if err := json.Unmarshal([]byte(consensusJSON), &a.Consensus); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal consensus")
	}
	if err := json.Unmarshal([]byte(researchJSON), &a.Research); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal research")
	}
	return &a, nil
}

// Chunks

func (s *SQLiteStore) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert chunks")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO deck_chunks (id, document_id, content, embedding, source) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert chunk")
	}
	defer stmt.Close()

	for _, c := range chunks {
		embJSON, err := json.Marshal(c.Embedding)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal embedding")
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Content, string(embJSON), c.Source); err != nil {
			return eris.Wrapf(err, "sqlite: insert chunk %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert chunks")
}

func (s *SQLiteStore) ListChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, embedding, source FROM deck_chunks WHERE document_id = ? ORDER BY id`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list chunks")
	}
	defer rows.Close()
	return scanChunksLite(rows, "sqlite: list chunks")
}

func (s *SQLiteStore) SearchChunkText(ctx context.Context, documentID, term string, limit int) ([]model.Chunk, error) {
	if limit <= 0 {
		limit = 8
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, embedding, source FROM deck_chunks
		 WHERE document_id = ? AND lower(content) LIKE '%' || lower(?) || '%'
		 ORDER BY id LIMIT ?`,
		documentID, term, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search chunk text")
	}
	defer rows.Close()
	return scanChunksLite(rows, "sqlite: search chunk text")
}

func (s *SQLiteStore) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM deck_chunks WHERE document_id = ?`, documentID)
	return eris.Wrap(err, "sqlite: delete chunks")
}

// Thesis

func (s *SQLiteStore) GetThesis(ctx context.Context, userID string) (*model.Thesis, error) {
	var t model.Thesis
	var sectorsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, thesis_text, target_sectors, geography, check_size_min, check_size_max, preferred_stage, anti_thesis, updated_at
		 FROM vc_thesis WHERE user_id = ?`,
		userID,
	).Scan(&t.UserID, &t.Text, &sectorsJSON, &t.Geography, &t.CheckSizeMin, &t.CheckSizeMax, &t.PreferredStage, &t.AntiThesis, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get thesis")
	}

	if err := json.Unmarshal([]byte(sectorsJSON), &t.TargetSectors); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal target sectors")
	}
	return &t, nil
}

func (s *SQLiteStore) UpsertThesis(ctx context.Context, t *model.Thesis) error {
	sectorsJSON, err := json.Marshal(t.TargetSectors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal target sectors")
	}
	t.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vc_thesis (user_id, thesis_text, target_sectors, geography, check_size_min, check_size_max, preferred_stage, anti_thesis, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   thesis_text = excluded.thesis_text, target_sectors = excluded.target_sectors,
		   geography = excluded.geography, check_size_min = excluded.check_size_min,
		   check_size_max = excluded.check_size_max, preferred_stage = excluded.preferred_stage,
		   anti_thesis = excluded.anti_thesis, updated_at = excluded.updated_at`,
		t.UserID, t.Text, string(sectorsJSON), t.Geography, t.CheckSizeMin, t.CheckSizeMax,
		t.PreferredStage, t.AntiThesis, t.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert thesis")
}

// Conversations

func (s *SQLiteStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	var docID any
	if c.DocumentID != "" {
		docID = c.DocumentID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, document_id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, docID, c.Title, c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert conversation")
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	var docID sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, document_id, title, created_at, updated_at FROM conversations WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.UserID, &docID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get conversation %s", id)
	}
	if docID.Valid {
		c.DocumentID = docID.String
	}
	return &c, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, document_id, title, created_at, updated_at
		 FROM conversations WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list conversations")
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		var docID sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &docID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan conversation")
		}
		if docID.Valid {
			c.DocumentID = docID.String
		}
		convs = append(convs, c)
	}
	return convs, eris.Wrap(rows.Err(), "sqlite: list conversations iterate")
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert message")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		m.CreatedAt, m.ConversationID,
	)
	return eris.Wrap(err, "sqlite: touch conversation")
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list messages")
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan message")
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list messages iterate")
	}

	reverseMessages(msgs)
	return msgs, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocumentLite(row scannable, wrap string) (*model.Document, error) {
	var doc model.Document
	var enrichmentJSON string

	err := row.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.Name, &doc.RawText,
		&doc.Status, &doc.Fingerprint, &doc.MatchScore, &enrichmentJSON,
		&doc.Notes, &doc.UploadedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, wrap)
	}

	if enrichmentJSON != "" {
		if err := json.Unmarshal([]byte(enrichmentJSON), &doc.Enrichment); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal enrichment")
		}
	}
	return &doc, nil
}

func scanChunksLite(rows *sql.Rows, wrap string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var embJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &embJSON, &c.Source); err != nil {
			return nil, eris.Wrap(err, wrap)
		}
		if embJSON.Valid && embJSON.String != "" && embJSON.String != "null" {
			if err := json.Unmarshal([]byte(embJSON.String), &c.Embedding); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal embedding")
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, eris.Wrap(rows.Err(), wrap+" iterate")
}
