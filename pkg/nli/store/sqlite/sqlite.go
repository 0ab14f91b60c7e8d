package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/store"
)

// sqliteStore implements store.Graph on a single quads table.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Graph, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS quads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subject TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object TEXT NOT NULL,
	literal INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	UNIQUE(subject, predicate, object, literal)
);

CREATE INDEX IF NOT EXISTS idx_quads_subject ON quads(subject);
CREATE INDEX IF NOT EXISTS idx_quads_predicate ON quads(predicate);
CREATE INDEX IF NOT EXISTS idx_quads_object ON quads(object, literal);
CREATE INDEX IF NOT EXISTS idx_quads_sp ON quads(subject, predicate);

CREATE TABLE IF NOT EXISTS labels (
	subject TEXT NOT NULL,
	label TEXT NOT NULL,
	norm TEXT NOT NULL,
	PRIMARY KEY(subject, label)
);

CREATE INDEX IF NOT EXISTS idx_labels_norm ON labels(norm);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Link inserts facts in one transaction. Existing facts are ignored.
func (s *sqliteStore) Link(ctx context.Context, facts ...store.Fact) error {
	for _, f := range facts {
		if err := store.ValidateFact(f); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range facts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO quads (subject, predicate, object, literal) VALUES (?, ?, ?, ?)`,
			f.Subject, f.Predicate, f.Object, boolToInt(f.Literal),
		); err != nil {
			return fmt.Errorf("insert %s: %w", f, err)
		}
		if f.Literal && store.IsLabelPredicate(f.Predicate) {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO labels (subject, label, norm) VALUES (?, ?, ?)`,
				f.Subject, f.Object, rank.Normalise(f.Object),
			); err != nil {
				return fmt.Errorf("insert label %s: %w", f, err)
			}
		}
	}
	return tx.Commit()
}

// Unlink deletes facts. Missing facts are ignored.
func (s *sqliteStore) Unlink(ctx context.Context, facts ...store.Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range facts {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM quads WHERE subject = ? AND predicate = ? AND object = ? AND literal = ?`,
			f.Subject, f.Predicate, f.Object, boolToInt(f.Literal),
		); err != nil {
			return fmt.Errorf("delete %s: %w", f, err)
		}
		if f.Literal && store.IsLabelPredicate(f.Predicate) {
			// Another label predicate may still carry the same text.
			if _, err := tx.ExecContext(ctx, `
DELETE FROM labels WHERE subject = ? AND label = ?
AND NOT EXISTS (SELECT 1 FROM quads WHERE subject = ? AND object = ? AND literal = 1 AND predicate IN (`+placeholders(len(store.LabelPredicates))+`))`,
				append([]any{f.Subject, f.Object, f.Subject, f.Object}, stringArgs(store.LabelPredicates)...)...,
			); err != nil {
				return fmt.Errorf("delete label %s: %w", f, err)
			}
		}
	}
	return tx.Commit()
}

// Outgoing implements store.FactSource.
func (s *sqliteStore) Outgoing(ctx context.Context, subject string) ([]store.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT predicate, object, literal FROM quads WHERE subject = ? ORDER BY id`, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type row struct {
		predicate, object string
		literal           bool
	}
	var raw []row
	for rows.Next() {
		var r row
		var lit int
		if err := rows.Scan(&r.predicate, &r.object, &lit); err != nil {
			return nil, err
		}
		r.literal = lit != 0
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labels := newLabelCache(s.db)
	edges := make([]store.Edge, 0, len(raw))
	for _, r := range raw {
		prop, err := labels.entity(ctx, r.predicate, entity.KindProperty)
		if err != nil {
			return nil, err
		}
		node := entity.Value(r.object)
		if !r.literal {
			if node, err = labels.entity(ctx, r.object, entity.KindInstance); err != nil {
				return nil, err
			}
		}
		edges = append(edges, store.Edge{Property: prop, Node: node})
	}
	return edges, nil
}

// Incoming implements store.FactSource.
func (s *sqliteStore) Incoming(ctx context.Context, object string) ([]store.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, predicate FROM quads WHERE object = ? AND literal = 0 ORDER BY id`, object)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var subj, pred string
		if err := rows.Scan(&subj, &pred); err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]string{subj, pred})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labels := newLabelCache(s.db)
	edges := make([]store.Edge, 0, len(pairs))
	for _, p := range pairs {
		prop, err := labels.entity(ctx, p[1], entity.KindProperty)
		if err != nil {
			return nil, err
		}
		node, err := labels.entity(ctx, p[0], entity.KindInstance)
		if err != nil {
			return nil, err
		}
		edges = append(edges, store.Edge{Property: prop, Node: node})
	}
	return edges, nil
}

// Lookup implements store.Lookup.
func (s *sqliteStore) Lookup(ctx context.Context, ids []string) ([]entity.Entity, error) {
	labels := newLabelCache(s.db)
	out := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		kind, ok, err := s.kindOf(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		e, err := labels.entity(ctx, id, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Search implements store.Searcher. Candidates are found by label or id
// substring per query token, then filtered by kind and scored by token
// overlap.
func (s *sqliteStore) Search(ctx context.Context, q store.Query) (rank.Scores, error) {
	tokens := strings.Fields(rank.Normalise(q.Text))
	if len(tokens) == 0 {
		return nil, nil
	}

	var clauses []string
	var args []any
	for _, tok := range tokens {
		like := "%" + escapeLike(tok) + "%"
		clauses = append(clauses,
			`SELECT subject AS id FROM labels WHERE norm LIKE ? ESCAPE '\'`,
			`SELECT subject FROM quads WHERE lower(subject) LIKE ? ESCAPE '\'`,
			`SELECT object FROM quads WHERE literal = 0 AND lower(object) LIKE ? ESCAPE '\'`,
			`SELECT predicate FROM quads WHERE lower(predicate) LIKE ? ESCAPE '\'`,
		)
		args = append(args, like, like, like, like)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT id FROM (`+strings.Join(clauses, " UNION ")+`)`, args...)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labels := newLabelCache(s.db)
	var results rank.Scores
	for _, id := range ids {
		match, kind, err := s.matchesTarget(ctx, id, q.Target)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		e, err := labels.entity(ctx, id, kind)
		if err != nil {
			return nil, err
		}
		if v := store.Overlap(q.Text, id, e.RankableValues()); v > 0 {
			results = append(results, rank.Score{Entry: e, Value: v})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Value != results[j].Value {
			return results[i].Value > results[j].Value
		}
		return results[i].Entry.(entity.Entity).ID < results[j].Entry.(entity.Entity).ID
	})
	return results.Limit(q.Limit), nil
}

// Stats implements store.Graph.
func (s *sqliteStore) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	queries := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&st.Facts, `SELECT COUNT(*) FROM quads`, nil},
		{&st.Nodes, `SELECT COUNT(*) FROM (SELECT subject FROM quads UNION SELECT object FROM quads WHERE literal = 0)`, nil},
		{&st.Classes, `SELECT COUNT(*) FROM (
SELECT object FROM quads WHERE literal = 0 AND predicate IN (?, ?)
UNION SELECT subject FROM quads WHERE predicate = ?)`, []any{entity.RDFType, entity.RDFSSubClassOf, entity.RDFSSubClassOf}},
		{&st.Properties, `SELECT COUNT(DISTINCT predicate) FROM quads`, nil},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return store.Stats{}, err
		}
	}
	return st, nil
}

func (s *sqliteStore) isClass(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM quads WHERE object = ? AND literal = 0 AND predicate IN (?, ?))
    OR EXISTS(SELECT 1 FROM quads WHERE subject = ? AND predicate = ?)`,
		id, entity.RDFType, entity.RDFSSubClassOf, id, entity.RDFSSubClassOf,
	).Scan(&n)
	return n != 0, err
}

func (s *sqliteStore) isProperty(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM quads WHERE predicate = ?)`, id).Scan(&n)
	return n != 0, err
}

func (s *sqliteStore) isNode(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM quads WHERE subject = ?)
    OR EXISTS(SELECT 1 FROM quads WHERE object = ? AND literal = 0)`, id, id).Scan(&n)
	return n != 0, err
}

func (s *sqliteStore) kindOf(ctx context.Context, id string) (entity.Kind, bool, error) {
	prop, err := s.isProperty(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if prop {
		return entity.KindProperty, true, nil
	}
	node, err := s.isNode(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return entity.KindInstance, node, nil
}

func (s *sqliteStore) matchesTarget(ctx context.Context, id string, target store.Target) (bool, entity.Kind, error) {
	switch target {
	case store.TargetProperty:
		ok, err := s.isProperty(ctx, id)
		return ok, entity.KindProperty, err
	case store.TargetClass:
		ok, err := s.isClass(ctx, id)
		return ok, entity.KindInstance, err
	}
	node, err := s.isNode(ctx, id)
	if err != nil || !node {
		return false, entity.KindInstance, err
	}
	class, err := s.isClass(ctx, id)
	if err != nil || class {
		return false, entity.KindInstance, err
	}
	prop, err := s.isProperty(ctx, id)
	return !prop, entity.KindInstance, err
}

// labelCache memoises label lookups for the duration of one call.
type labelCache struct {
	db    *sql.DB
	cache map[string][]string
}

func newLabelCache(db *sql.DB) *labelCache {
	return &labelCache{db: db, cache: make(map[string][]string)}
}

func (c *labelCache) entity(ctx context.Context, id string, kind entity.Kind) (entity.Entity, error) {
	labels, ok := c.cache[id]
	if !ok {
		rows, err := c.db.QueryContext(ctx, `SELECT label FROM labels WHERE subject = ? ORDER BY rowid`, id)
		if err != nil {
			return entity.Entity{}, err
		}
		for rows.Next() {
			var l string
			if err := rows.Scan(&l); err != nil {
				rows.Close()
				return entity.Entity{}, err
			}
			labels = append(labels, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return entity.Entity{}, err
		}
		c.cache[id] = labels
	}
	return store.NewEntity(id, kind, labels), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
