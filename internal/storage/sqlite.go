package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xapikatchu/xapikatchu/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// tableNames holds the prefixed table names computed once at construction.
type tableNames struct {
	statement    string
	actor        string
	verb         string
	object       string
	result       string
	h5pContents  string
	h5pLibraries string
}

func newTableNames(prefix string) tableNames {
	return tableNames{
		statement:    prefix + "statement",
		actor:        prefix + "actor",
		verb:         prefix + "verb",
		object:       prefix + "object",
		result:       prefix + "result",
		h5pContents:  prefix + "h5p_contents",
		h5pLibraries: prefix + "h5p_libraries",
	}
}

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db     *sql.DB
	tables tableNames
	prefix string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer connection; serializes lookup-or-insert across requests
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance and applies pending
// schema migrations.
func NewSQLiteStorage(dbPath string, cfg Config) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db, cfg.Prefix); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{
		db:     db,
		tables: newTableNames(cfg.Prefix),
		prefix: cfg.Prefix,
	}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Drop removes the five tables unconditionally. Used on uninstall.
func (s *SQLiteStorage) Drop(ctx context.Context) error {
	return DropSchema(ctx, s.db, s.prefix)
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Dimension resolution
//
// Each resolver performs an atomic lookup-or-insert: SELECT by natural key
// with NULL-safe (IS) equality, then INSERT ... ON CONFLICT DO NOTHING and
// re-SELECT when another request won the insert race. Unique indexes on the
// natural keys back the conflict path; composite keys containing NULLs are
// not covered by the index and rely on the single-writer connection instead.

// resolveActorWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) resolveActorWithQuerier(ctx context.Context, q querier, actor *types.Actor) (int64, error) {
	selectQuery := fmt.Sprintf(`SELECT id FROM %s WHERE actor_id IS ?`, s.tables.actor)

	var id int64
	err := q.QueryRowContext(ctx, selectQuery, actor.IFI).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up actor: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (actor_id, actor_name, actor_members)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, s.tables.actor)
	result, err := q.ExecContext(ctx, insertQuery, actor.IFI, actor.Name, actor.Members)
	if err != nil {
		return 0, fmt.Errorf("failed to insert actor: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		if id, err := result.LastInsertId(); err == nil {
			return id, nil
		}
	}

	// Lost the insert race; the conflict winner holds the row
	if err := q.QueryRowContext(ctx, selectQuery, actor.IFI).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to re-look up actor: %w", err)
	}
	return id, nil
}

// ResolveActor returns the surrogate id for the actor's natural key,
// inserting a new dimension row on first occurrence.
func (s *SQLiteStorage) ResolveActor(ctx context.Context, actor *types.Actor) (int64, error) {
	return s.resolveActorWithQuerier(ctx, s.querier(), actor)
}

// resolveVerbWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) resolveVerbWithQuerier(ctx context.Context, q querier, verb *types.Verb) (int64, error) {
	selectQuery := fmt.Sprintf(`SELECT id FROM %s WHERE verb_id IS ?`, s.tables.verb)

	var id int64
	err := q.QueryRowContext(ctx, selectQuery, verb.ID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up verb: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (verb_id, verb_display)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, s.tables.verb)
	result, err := q.ExecContext(ctx, insertQuery, verb.ID, verb.Display)
	if err != nil {
		return 0, fmt.Errorf("failed to insert verb: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		if id, err := result.LastInsertId(); err == nil {
			return id, nil
		}
	}

	if err := q.QueryRowContext(ctx, selectQuery, verb.ID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to re-look up verb: %w", err)
	}
	return id, nil
}

// ResolveVerb returns the surrogate id for the verb URI, inserting a new
// dimension row on first occurrence.
func (s *SQLiteStorage) ResolveVerb(ctx context.Context, verb *types.Verb) (int64, error) {
	return s.resolveVerbWithQuerier(ctx, s.querier(), verb)
}

// resolveObjectWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) resolveObjectWithQuerier(ctx context.Context, q querier, object *types.Object) (int64, error) {
	// All five fields form the natural key; IS keeps NULLs comparable
	selectQuery := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE xobject_id IS ?
		  AND object_name IS ?
		  AND object_description IS ?
		  AND object_choices IS ?
		  AND object_correct_responses_pattern IS ?
	`, s.tables.object)

	var id int64
	err := q.QueryRowContext(ctx, selectQuery,
		object.ID, object.Name, object.Description,
		object.Choices, object.CorrectResponsesPattern,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up object: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (xobject_id, object_name, object_description, object_choices, object_correct_responses_pattern)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, s.tables.object)
	result, err := q.ExecContext(ctx, insertQuery,
		object.ID, object.Name, object.Description,
		object.Choices, object.CorrectResponsesPattern)
	if err != nil {
		return 0, fmt.Errorf("failed to insert object: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		if id, err := result.LastInsertId(); err == nil {
			return id, nil
		}
	}

	if err := q.QueryRowContext(ctx, selectQuery,
		object.ID, object.Name, object.Description,
		object.Choices, object.CorrectResponsesPattern,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to re-look up object: %w", err)
	}
	return id, nil
}

// ResolveObject returns the surrogate id for the activity's composite natural
// key, inserting a new dimension row on first occurrence.
func (s *SQLiteStorage) ResolveObject(ctx context.Context, object *types.Object) (int64, error) {
	return s.resolveObjectWithQuerier(ctx, s.querier(), object)
}

// resolveResultWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) resolveResultWithQuerier(ctx context.Context, q querier, result *types.Result) (int64, error) {
	// Common case: statement without result data routes to the sentinel row
	// without touching the result table
	if !result.HasResponse() {
		return SentinelResultID, nil
	}

	selectQuery := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE result_response IS ?
		  AND result_score_raw IS ?
		  AND result_score_scaled IS ?
		  AND result_completion IS ?
		  AND result_success IS ?
		  AND result_duration IS ?
	`, s.tables.result)

	var id int64
	err := q.QueryRowContext(ctx, selectQuery,
		result.Response, result.ScoreRaw, result.ScoreScaled,
		result.Completion, result.Success, result.Duration,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up result: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (result_response, result_score_raw, result_score_scaled, result_completion, result_success, result_duration)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, s.tables.result)
	res, err := q.ExecContext(ctx, insertQuery,
		result.Response, result.ScoreRaw, result.ScoreScaled,
		result.Completion, result.Success, result.Duration)
	if err != nil {
		return 0, fmt.Errorf("failed to insert result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		if id, err := res.LastInsertId(); err == nil {
			return id, nil
		}
	}

	if err := q.QueryRowContext(ctx, selectQuery,
		result.Response, result.ScoreRaw, result.ScoreScaled,
		result.Completion, result.Success, result.Duration,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to re-look up result: %w", err)
	}
	return id, nil
}

// ResolveResult returns the surrogate id for the result's composite natural
// key. Statements without result data resolve to SentinelResultID.
func (s *SQLiteStorage) ResolveResult(ctx context.Context, result *types.Result) (int64, error) {
	return s.resolveResultWithQuerier(ctx, s.querier(), result)
}

// Fact operations

// insertStatementWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertStatementWithQuerier(ctx context.Context, q querier, st *Statement) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id_actor, id_verb, id_object, id_result, time, xapi)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tables.statement)

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		st.ActorID, st.VerbID, st.ObjectID, st.ResultID, now, st.XAPI)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrWriteFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = id
	st.Time = now
	return nil
}

// InsertStatement writes the fact row with a server-assigned timestamp.
func (s *SQLiteStorage) InsertStatement(ctx context.Context, st *Statement) error {
	return s.insertStatementWithQuerier(ctx, s.querier(), st)
}

// Reporting reads

// completeTableWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) completeTableWithQuerier(ctx context.Context, q querier, limit int) ([]ReportRow, error) {
	query := fmt.Sprintf(`
		SELECT
			act.actor_id, act.actor_name, act.actor_members,
			ver.verb_id, ver.verb_display,
			obj.xobject_id, obj.object_name, obj.object_description, obj.object_choices, obj.object_correct_responses_pattern,
			res.result_response, res.result_score_raw, res.result_score_scaled, res.result_completion, res.result_success, res.result_duration,
			mst.time, mst.xapi
		FROM %s AS mst
		JOIN %s AS act ON mst.id_actor = act.id
		JOIN %s AS ver ON mst.id_verb = ver.id
		JOIN %s AS obj ON mst.id_object = obj.id
		JOIN %s AS res ON mst.id_result = res.id
		ORDER BY mst.time DESC, mst.id DESC
	`, s.tables.statement, s.tables.actor, s.tables.verb, s.tables.object, s.tables.result)

	args := make([]interface{}, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]ReportRow, 0)
	for rows.Next() {
		var (
			row         ReportRow
			actorID     sql.NullString
			actorName   sql.NullString
			members     sql.NullString
			verbID      sql.NullString
			verbDisplay sql.NullString
			objectID    sql.NullString
			objectName  sql.NullString
			description sql.NullString
			choices     sql.NullString
			pattern     sql.NullString
			response    sql.NullString
			scoreRaw    sql.NullInt64
			scoreScaled sql.NullFloat64
			completion  sql.NullBool
			success     sql.NullBool
			duration    sql.NullString
			xapi        sql.NullString
		)

		err := rows.Scan(
			&actorID, &actorName, &members,
			&verbID, &verbDisplay,
			&objectID, &objectName, &description, &choices, &pattern,
			&response, &scoreRaw, &scoreScaled, &completion, &success, &duration,
			&row.Time, &xapi,
		)
		if err != nil {
			return nil, err
		}

		row.ActorID = nullString(actorID)
		row.ActorName = nullString(actorName)
		row.ActorMembers = nullString(members)
		row.VerbID = nullString(verbID)
		row.VerbDisplay = nullString(verbDisplay)
		row.ObjectID = nullString(objectID)
		row.ObjectName = nullString(objectName)
		row.ObjectDescription = nullString(description)
		row.ObjectChoices = nullString(choices)
		row.ObjectCorrectResponsesPattern = nullString(pattern)
		row.ResultResponse = nullString(response)
		row.ResultScoreRaw = nullInt64(scoreRaw)
		row.ResultScoreScaled = nullFloat64(scoreScaled)
		row.ResultCompletion = nullBool(completion)
		row.ResultSuccess = nullBool(success)
		row.ResultDuration = nullString(duration)
		row.XAPI = nullString(xapi)

		out = append(out, row)
	}
	return out, rows.Err()
}

// CompleteTable returns all fact rows joined with their four dimension rows,
// ordered by time descending. A limit <= 0 returns everything.
func (s *SQLiteStorage) CompleteTable(ctx context.Context, limit int) ([]ReportRow, error) {
	return s.completeTableWithQuerier(ctx, s.querier(), limit)
}

// reportColumns is the ordered list of user-facing column names, surrogate
// keys excluded.
var reportColumns = []string{
	"actor_id", "actor_name", "actor_members",
	"verb_id", "verb_display",
	"xobject_id", "object_name", "object_description", "object_choices", "object_correct_responses_pattern",
	"result_response", "result_score_raw", "result_score_scaled", "result_completion", "result_success", "result_duration",
	"time", "xapi",
}

// ColumnTitles returns the ordered user-facing column names for reporting.
func (s *SQLiteStorage) ColumnTitles() []string {
	titles := make([]string, len(reportColumns))
	copy(titles, reportColumns)
	return titles
}

// contentTypesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) contentTypesWithQuerier(ctx context.Context, q querier) ([]ContentType, error) {
	// Soft external dependency: the content-authoring catalog may not share
	// this database. Missing tables mean an empty listing, not an error.
	for _, table := range []string{s.tables.h5pContents, s.tables.h5pLibraries} {
		var name string
		err := q.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	query := fmt.Sprintf(`
		SELECT ct.id, ct.title, lib.title
		FROM %s AS ct
		JOIN %s AS lib ON ct.library_id = lib.id
	`, s.tables.h5pContents, s.tables.h5pLibraries)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]ContentType, 0)
	for rows.Next() {
		var ct ContentType
		if err := rows.Scan(&ct.ID, &ct.Title, &ct.Library); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// ContentTypes lists the external content-authoring catalog, or returns an
// empty result when the catalog tables are absent.
func (s *SQLiteStorage) ContentTypes(ctx context.Context) ([]ContentType, error) {
	return s.contentTypesWithQuerier(ctx, s.querier())
}

// Null scan helpers

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullFloat64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

// Transaction implementations - delegate to main storage using the tx querier

func (t *sqliteTx) ResolveActor(ctx context.Context, actor *types.Actor) (int64, error) {
	return t.storage.resolveActorWithQuerier(ctx, t.querier(), actor)
}

func (t *sqliteTx) ResolveVerb(ctx context.Context, verb *types.Verb) (int64, error) {
	return t.storage.resolveVerbWithQuerier(ctx, t.querier(), verb)
}

func (t *sqliteTx) ResolveObject(ctx context.Context, object *types.Object) (int64, error) {
	return t.storage.resolveObjectWithQuerier(ctx, t.querier(), object)
}

func (t *sqliteTx) ResolveResult(ctx context.Context, result *types.Result) (int64, error) {
	return t.storage.resolveResultWithQuerier(ctx, t.querier(), result)
}

func (t *sqliteTx) InsertStatement(ctx context.Context, st *Statement) error {
	return t.storage.insertStatementWithQuerier(ctx, t.querier(), st)
}

func (t *sqliteTx) CompleteTable(ctx context.Context, limit int) ([]ReportRow, error) {
	return t.storage.completeTableWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) ColumnTitles() []string {
	return t.storage.ColumnTitles()
}

func (t *sqliteTx) ContentTypes(ctx context.Context) ([]ContentType, error) {
	return t.storage.contentTypesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
