package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xapikatchu/xapikatchu/pkg/types"
)

// Parser decodes raw xAPI statements into typed dimension records. It is a
// pure transform: no side effects, safe for concurrent use.
type Parser struct {
	locale string
}

// New creates a Parser that resolves language maps against the given locale.
// An empty locale defaults to en-US. Underscore locales (en_US) are
// hyphen-normalized.
func New(locale string) *Parser {
	if locale == "" {
		locale = "en-US"
	}
	return &Parser{locale: strings.ReplaceAll(locale, "_", "-")}
}

// WithLocale returns a parser resolving language maps against locale instead.
// An empty locale returns the receiver unchanged.
func (p *Parser) WithLocale(locale string) *Parser {
	if locale == "" {
		return p
	}
	return New(locale)
}

// statement mirrors the top-level xAPI fields the pipeline consumes.
type statement struct {
	Actor  json.RawMessage `json:"actor"`
	Verb   json.RawMessage `json:"verb"`
	Object json.RawMessage `json:"object"`
	Result json.RawMessage `json:"result"`
}

// Parse decodes a raw statement into a StatementRecord. The input may be a
// JSON object or a JSON-encoded string wrapping one (historical clients
// double-encode the payload). Missing actor, verb, or object fields fail with
// types.ErrMalformedStatement.
func (p *Parser) Parse(raw []byte) (*types.StatementRecord, error) {
	payload := normalize(raw)

	var st statement
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedStatement, err)
	}
	if isAbsent(st.Actor) {
		return nil, fmt.Errorf("%w: missing actor", types.ErrMalformedStatement)
	}
	if isAbsent(st.Verb) {
		return nil, fmt.Errorf("%w: missing verb", types.ErrMalformedStatement)
	}
	if isAbsent(st.Object) {
		return nil, fmt.Errorf("%w: missing object", types.ErrMalformedStatement)
	}

	actor, err := p.parseActor(st.Actor)
	if err != nil {
		return nil, err
	}
	verb, err := p.parseVerb(st.Verb)
	if err != nil {
		return nil, err
	}
	object, err := p.parseObject(st.Object)
	if err != nil {
		return nil, err
	}
	result, err := p.parseResult(st.Result)
	if err != nil {
		return nil, err
	}

	return &types.StatementRecord{
		Actor:  *actor,
		Verb:   *verb,
		Object: *object,
		Result: *result,
		Raw:    string(payload),
	}, nil
}

// normalize unwraps double-encoded payloads and strips stray escaping left by
// legacy clients.
func normalize(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return bytes.TrimSpace([]byte(s))
		}
	}
	if bytes.Contains(trimmed, []byte(`\"`)) && !json.Valid(trimmed) {
		return bytes.ReplaceAll(trimmed, []byte(`\"`), []byte(`"`))
	}
	return trimmed
}

// isAbsent reports whether a raw top-level field is missing or JSON null.
func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// actorPayload mirrors the xAPI agent/group object.
type actorPayload struct {
	Name        json.RawMessage `json:"name"`
	Mbox        json.RawMessage `json:"mbox"`
	MboxSHA1Sum json.RawMessage `json:"mbox_sha1sum"`
	OpenID      json.RawMessage `json:"openid"`
	Account     json.RawMessage `json:"account"`
	Member      json.RawMessage `json:"member"`
}

func (p *Parser) parseActor(raw json.RawMessage) (*types.Actor, error) {
	var a actorPayload
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: actor: %v", types.ErrMalformedStatement, err)
	}

	// First inverse functional identifier wins; account identifiers keep
	// their serialized object form.
	ifi := types.FieldOf(a.Mbox, false)
	if ifi.IsAbsent() {
		ifi = types.FieldOf(a.MboxSHA1Sum, false)
	}
	if ifi.IsAbsent() {
		ifi = types.FieldOf(a.OpenID, false)
	}
	if ifi.IsAbsent() {
		ifi = types.FieldOf(a.Account, false)
	}

	return &types.Actor{
		IFI:     ifi.Text(p.locale),
		Name:    types.FieldOf(a.Name, false).Text(p.locale),
		Members: types.FieldOf(a.Member, false).Text(p.locale),
	}, nil
}

// verbPayload mirrors the xAPI verb object.
type verbPayload struct {
	ID      json.RawMessage `json:"id"`
	Display json.RawMessage `json:"display"`
}

func (p *Parser) parseVerb(raw json.RawMessage) (*types.Verb, error) {
	var v verbPayload
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: verb: %v", types.ErrMalformedStatement, err)
	}

	return &types.Verb{
		ID:      types.FieldOf(v.ID, false).Text(p.locale),
		Display: types.FieldOf(v.Display, true).Text(p.locale),
	}, nil
}

// objectPayload mirrors the xAPI activity object.
type objectPayload struct {
	ID         json.RawMessage `json:"id"`
	Definition struct {
		Name                    json.RawMessage `json:"name"`
		Description             json.RawMessage `json:"description"`
		Choices                 json.RawMessage `json:"choices"`
		CorrectResponsesPattern json.RawMessage `json:"correctResponsesPattern"`
	} `json:"definition"`
}

func (p *Parser) parseObject(raw json.RawMessage) (*types.Object, error) {
	var o objectPayload
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("%w: object: %v", types.ErrMalformedStatement, err)
	}

	return &types.Object{
		ID:                      types.FieldOf(o.ID, false).Text(p.locale),
		Name:                    types.FieldOf(o.Definition.Name, true).Text(p.locale),
		Description:             types.FieldOf(o.Definition.Description, true).Text(p.locale),
		Choices:                 types.FieldOf(o.Definition.Choices, false).Text(p.locale),
		CorrectResponsesPattern: types.FieldOf(o.Definition.CorrectResponsesPattern, false).Text(p.locale),
	}, nil
}

// resultPayload mirrors the xAPI result object with typed score fields.
type resultPayload struct {
	Response json.RawMessage `json:"response"`
	Score    struct {
		Raw    *int64   `json:"raw"`
		Scaled *float64 `json:"scaled"`
	} `json:"score"`
	Completion *bool   `json:"completion"`
	Success    *bool   `json:"success"`
	Duration   *string `json:"duration"`
}

func (p *Parser) parseResult(raw json.RawMessage) (*types.Result, error) {
	// Result is optional; an absent result routes to the sentinel row later.
	if isAbsent(raw) {
		return &types.Result{}, nil
	}

	var r resultPayload
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: result: %v", types.ErrMalformedStatement, err)
	}

	return &types.Result{
		Response:    types.FieldOf(r.Response, false).Text(p.locale),
		ScoreRaw:    r.Score.Raw,
		ScoreScaled: r.Score.Scaled,
		Completion:  r.Completion,
		Success:     r.Success,
		Duration:    r.Duration,
	}, nil
}
