package history

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS interactions (
	id              TEXT PRIMARY KEY,
	modality        TEXT NOT NULL,
	input           TEXT NOT NULL,
	embedding       BLOB,
	emotion_label   TEXT,
	emotion_score   REAL,
	top_prediction  TEXT,
	result_json     TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);
`

// #endregion schema

// #region store-struct
// Store persists interactions in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path in WAL mode and migrates it. The
// pragmas ride in the DSN so every pooled connection gets them.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewStore migrates an already open database.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the event log, preferences and cache.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store-struct

// #region record
// Record stores res. A result without an id gets a fresh one.
func (s *Store) Record(ctx context.Context, res fusion.Result) (Interaction, error) {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	created := time.UnixMilli(res.Timestamp).UTC()
	if res.Timestamp == 0 {
		created = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(res)
	if err != nil {
		return Interaction{}, fmt.Errorf("marshal result: %w", err)
	}

	it := Interaction{
		ID:        res.ID,
		Modality:  res.Modality,
		Input:     res.Input,
		Embedding: res.Embeddings,
		Result:    res,
		CreatedAt: created,
	}
	var emotionLabel, topPrediction any
	var emotionScore any
	if res.Emotion != nil {
		it.EmotionLabel = string(res.Emotion.Label)
		it.EmotionScore = res.Emotion.Score
		emotionLabel, emotionScore = it.EmotionLabel, float64(it.EmotionScore)
	}
	if res.Predictions != nil {
		if top, ok := res.Predictions.Top(); ok {
			it.TopPrediction = top.Label
			topPrediction = top.Label
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interactions
		 (id, modality, input, embedding, emotion_label, emotion_score, top_prediction, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, string(it.Modality), it.Input, encodeVector(it.Embedding),
		emotionLabel, emotionScore, topPrediction, string(resultJSON), created.UnixMilli(),
	)
	if err != nil {
		return Interaction{}, fmt.Errorf("insert interaction: %w", err)
	}
	return it, nil
}

// #endregion record

// #region get
// Get returns the interaction with id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Interaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM interactions WHERE id = ?`, id)
	it, err := scanInteraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Interaction{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Interaction{}, fmt.Errorf("get interaction %s: %w", id, err)
	}
	return it, nil
}

// #endregion get

// #region recent
// Recent returns up to limit interactions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM interactions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		it, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// RecentTexts returns the inputs of up to limit recent text and audio
// interactions, oldest first, for seeding context memory.
func (s *Store) RecentTexts(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input FROM interactions
		 WHERE modality IN (?, ?)
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(modality.Text), string(modality.Audio), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan text: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(texts)-1; i < j; i, j = i+1, j-1 {
		texts[i], texts[j] = texts[j], texts[i]
	}
	return texts, nil
}

// #endregion recent

// #region prune
// Prune deletes interactions created before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM interactions WHERE created_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune interactions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored interactions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return n, nil
}

// #endregion prune

// #region scan
const columns = `id, modality, input, embedding, emotion_label, emotion_score, top_prediction, result_json, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row scanner) (Interaction, error) {
	var it Interaction
	var mod, resultJSON string
	var blob []byte
	var label, top sql.NullString
	var score sql.NullFloat64
	var created int64

	if err := row.Scan(&it.ID, &mod, &it.Input, &blob, &label, &score, &top, &resultJSON, &created); err != nil {
		return Interaction{}, err
	}
	it.Modality = modality.Modality(mod)
	it.Embedding = decodeVector(blob)
	it.EmotionLabel = label.String
	it.EmotionScore = float32(score.Float64)
	it.TopPrediction = top.String
	it.CreatedAt = time.UnixMilli(created).UTC()
	if err := json.Unmarshal([]byte(resultJSON), &it.Result); err != nil {
		return Interaction{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return it, nil
}

// #endregion scan

// #region vector-encoding
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// #endregion vector-encoding
