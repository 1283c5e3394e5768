package types

// Actor is the agent dimension of a statement. The inverse functional
// identifier is the natural key; Members carries the serialized member list
// for group actors.
type Actor struct {
	IFI     *string
	Name    *string
	Members *string
}

// Verb is the verb dimension. The verb URI is the natural key; Display is the
// locale-resolved display text.
type Verb struct {
	ID      *string
	Display *string
}

// Object is the learning-activity dimension. All five fields together form
// the natural key: the same activity URI with a different interaction
// definition counts as a distinct object.
type Object struct {
	ID                      *string
	Name                    *string
	Description             *string
	Choices                 *string
	CorrectResponsesPattern *string
}

// Result is the result dimension. All six fields together form the natural
// key. Statements without result data route to the pre-seeded sentinel row
// instead of being matched here.
type Result struct {
	Response    *string
	ScoreRaw    *int64
	ScoreScaled *float64
	Completion  *bool
	Success     *bool
	Duration    *string
}

// HasResponse reports whether the statement carried result data. Statements
// without a response resolve to the sentinel result row.
func (r *Result) HasResponse() bool {
	return r.Response != nil
}

// StatementRecord is the parsed form of one xAPI statement: the four
// dimension records plus the original payload text.
type StatementRecord struct {
	Actor  Actor
	Verb   Verb
	Object Object
	Result Result
	Raw    string
}
