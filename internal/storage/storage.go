package storage

import (
	"context"
	"time"

	"github.com/xapikatchu/xapikatchu/pkg/types"
)

// SentinelResultID is the pre-seeded result row statements without result
// data resolve to. The row is created during schema migration and always
// exists afterwards.
const SentinelResultID int64 = 1

// Config carries the storage configuration. The prefix namespaces the five
// tables (and the schema version table) inside a shared database.
type Config struct {
	Prefix string
}

// Storage defines the interface for persisting and querying normalized xAPI
// statements
type Storage interface {
	// Dimension resolution: lookup-or-insert by natural key, returning the
	// surrogate id
	ResolveActor(ctx context.Context, actor *types.Actor) (int64, error)
	ResolveVerb(ctx context.Context, verb *types.Verb) (int64, error)
	ResolveObject(ctx context.Context, object *types.Object) (int64, error)
	ResolveResult(ctx context.Context, result *types.Result) (int64, error)

	// Fact operations
	InsertStatement(ctx context.Context, st *Statement) error

	// Reporting reads
	CompleteTable(ctx context.Context, limit int) ([]ReportRow, error)
	ColumnTitles() []string
	ContentTypes(ctx context.Context) ([]ContentType, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Statement is the fact row referencing the four resolved dimension ids. Time
// is server-assigned at insert; XAPI holds the raw payload only when the
// store-complete-xapi policy is enabled.
type Statement struct {
	ID       int64
	ActorID  int64
	VerbID   int64
	ObjectID int64
	ResultID int64
	Time     time.Time
	XAPI     *string
}

// ReportRow is one fact row joined with its four dimension rows, shaped for
// reporting output.
type ReportRow struct {
	ActorID                       *string   `json:"actor_id"`
	ActorName                     *string   `json:"actor_name"`
	ActorMembers                  *string   `json:"actor_members"`
	VerbID                        *string   `json:"verb_id"`
	VerbDisplay                   *string   `json:"verb_display"`
	ObjectID                      *string   `json:"xobject_id"`
	ObjectName                    *string   `json:"object_name"`
	ObjectDescription             *string   `json:"object_description"`
	ObjectChoices                 *string   `json:"object_choices"`
	ObjectCorrectResponsesPattern *string   `json:"object_correct_responses_pattern"`
	ResultResponse                *string   `json:"result_response"`
	ResultScoreRaw                *int64    `json:"result_score_raw"`
	ResultScoreScaled             *float64  `json:"result_score_scaled"`
	ResultCompletion              *bool     `json:"result_completion"`
	ResultSuccess                 *bool     `json:"result_success"`
	ResultDuration                *string   `json:"result_duration"`
	Time                          time.Time `json:"time"`
	XAPI                          *string   `json:"xapi"`
}

// ContentType is one row of the external content-authoring catalog.
type ContentType struct {
	ID      int64  `json:"ct_id"`
	Title   string `json:"ct_title"`
	Library string `json:"lib_title"`
}
