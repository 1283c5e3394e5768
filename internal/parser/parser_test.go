package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xapikatchu/xapikatchu/pkg/types"
)

const sampleStatement = `{
	"actor": {"name": "Ada", "mbox": "mailto:ada@example.com"},
	"verb": {"id": "http://adlnet.gov/expapi/verbs/completed", "display": {"en-US": "completed", "fr-FR": "terminé"}},
	"object": {
		"id": "https://lms.example.com/activity/quiz-1",
		"definition": {
			"name": {"en-US": "Quiz 1"},
			"description": {"en-US": "A short quiz"},
			"choices": [{"id": "a"}, {"id": "b"}],
			"correctResponsesPattern": ["a"]
		}
	},
	"result": {
		"response": "a",
		"score": {"raw": 8, "scaled": 0.8},
		"completion": true,
		"success": true,
		"duration": "PT1M30S"
	}
}`

func TestParseRejectsMalformedInput(t *testing.T) {
	p := New("en-US")

	tests := []struct {
		name  string
		input string
	}{
		{"not JSON", "definitely not json"},
		{"missing actor", `{"verb": {"id": "v"}, "object": {"id": "o"}}`},
		{"missing verb", `{"actor": {"mbox": "mailto:a@b.c"}, "object": {"id": "o"}}`},
		{"missing object", `{"actor": {"mbox": "mailto:a@b.c"}, "verb": {"id": "v"}}`},
		{"null actor", `{"actor": null, "verb": {"id": "v"}, "object": {"id": "o"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrMalformedStatement)
		})
	}
}

func TestParseFullStatement(t *testing.T) {
	p := New("en-US")

	rec, err := p.Parse([]byte(sampleStatement))
	require.NoError(t, err)

	require.NotNil(t, rec.Actor.IFI)
	assert.Equal(t, "mailto:ada@example.com", *rec.Actor.IFI)
	require.NotNil(t, rec.Actor.Name)
	assert.Equal(t, "Ada", *rec.Actor.Name)
	assert.Nil(t, rec.Actor.Members)

	require.NotNil(t, rec.Verb.ID)
	assert.Equal(t, "http://adlnet.gov/expapi/verbs/completed", *rec.Verb.ID)
	require.NotNil(t, rec.Verb.Display)
	assert.Equal(t, "completed", *rec.Verb.Display)

	require.NotNil(t, rec.Object.ID)
	assert.Equal(t, "https://lms.example.com/activity/quiz-1", *rec.Object.ID)
	require.NotNil(t, rec.Object.Name)
	assert.Equal(t, "Quiz 1", *rec.Object.Name)
	require.NotNil(t, rec.Object.Description)
	assert.Equal(t, "A short quiz", *rec.Object.Description)
	require.NotNil(t, rec.Object.Choices)
	assert.JSONEq(t, `[{"id":"a"},{"id":"b"}]`, *rec.Object.Choices)
	require.NotNil(t, rec.Object.CorrectResponsesPattern)
	assert.JSONEq(t, `["a"]`, *rec.Object.CorrectResponsesPattern)

	require.True(t, rec.Result.HasResponse())
	assert.Equal(t, "a", *rec.Result.Response)
	require.NotNil(t, rec.Result.ScoreRaw)
	assert.Equal(t, int64(8), *rec.Result.ScoreRaw)
	require.NotNil(t, rec.Result.ScoreScaled)
	assert.InDelta(t, 0.8, *rec.Result.ScoreScaled, 1e-9)
	require.NotNil(t, rec.Result.Completion)
	assert.True(t, *rec.Result.Completion)
	require.NotNil(t, rec.Result.Success)
	assert.True(t, *rec.Result.Success)
	require.NotNil(t, rec.Result.Duration)
	assert.Equal(t, "PT1M30S", *rec.Result.Duration)
}

func TestParseLocaleResolution(t *testing.T) {
	t.Run("active locale wins over en-US", func(t *testing.T) {
		p := New("fr-FR")
		rec, err := p.Parse([]byte(sampleStatement))
		require.NoError(t, err)
		require.NotNil(t, rec.Verb.Display)
		assert.Equal(t, "terminé", *rec.Verb.Display)
	})

	t.Run("underscore locale is normalized", func(t *testing.T) {
		p := New("fr_FR")
		rec, err := p.Parse([]byte(sampleStatement))
		require.NoError(t, err)
		require.NotNil(t, rec.Verb.Display)
		assert.Equal(t, "terminé", *rec.Verb.Display)
	})

	t.Run("unknown locale falls back to en-US", func(t *testing.T) {
		p := New("de-DE")
		rec, err := p.Parse([]byte(sampleStatement))
		require.NoError(t, err)
		require.NotNil(t, rec.Verb.Display)
		assert.Equal(t, "completed", *rec.Verb.Display)
	})

	t.Run("WithLocale derives without mutating the receiver", func(t *testing.T) {
		base := New("en-US")

		rec, err := base.WithLocale("fr-FR").Parse([]byte(sampleStatement))
		require.NoError(t, err)
		require.NotNil(t, rec.Verb.Display)
		assert.Equal(t, "terminé", *rec.Verb.Display)

		rec, err = base.Parse([]byte(sampleStatement))
		require.NoError(t, err)
		require.NotNil(t, rec.Verb.Display)
		assert.Equal(t, "completed", *rec.Verb.Display)

		assert.Same(t, base, base.WithLocale(""))
	})
}

func TestParseDoubleEncodedPayload(t *testing.T) {
	p := New("en-US")

	wrapped, err := json.Marshal(sampleStatement)
	require.NoError(t, err)

	rec, err := p.Parse(wrapped)
	require.NoError(t, err)
	require.NotNil(t, rec.Actor.IFI)
	assert.Equal(t, "mailto:ada@example.com", *rec.Actor.IFI)
}

func TestParseActorIdentifierPrecedence(t *testing.T) {
	p := New("en-US")

	t.Run("mbox wins over openid", func(t *testing.T) {
		rec, err := p.Parse([]byte(`{
			"actor": {"mbox": "mailto:a@b.c", "openid": "https://id.example.com/a"},
			"verb": {"id": "v"}, "object": {"id": "o"}
		}`))
		require.NoError(t, err)
		require.NotNil(t, rec.Actor.IFI)
		assert.Equal(t, "mailto:a@b.c", *rec.Actor.IFI)
	})

	t.Run("mbox_sha1sum wins over account", func(t *testing.T) {
		rec, err := p.Parse([]byte(`{
			"actor": {"mbox_sha1sum": "abc123", "account": {"homePage": "h", "name": "n"}},
			"verb": {"id": "v"}, "object": {"id": "o"}
		}`))
		require.NoError(t, err)
		require.NotNil(t, rec.Actor.IFI)
		assert.Equal(t, "abc123", *rec.Actor.IFI)
	})

	t.Run("account keeps its serialized form", func(t *testing.T) {
		rec, err := p.Parse([]byte(`{
			"actor": {"account": {"homePage": "https://lms.example.com", "name": "u1"}},
			"verb": {"id": "v"}, "object": {"id": "o"}
		}`))
		require.NoError(t, err)
		require.NotNil(t, rec.Actor.IFI)
		assert.JSONEq(t, `{"homePage":"https://lms.example.com","name":"u1"}`, *rec.Actor.IFI)
	})
}

func TestParseGroupActorMembers(t *testing.T) {
	p := New("en-US")

	rec, err := p.Parse([]byte(`{
		"actor": {
			"objectType": "Group",
			"name": "Team A",
			"mbox": "mailto:team-a@example.com",
			"member": [{"mbox": "mailto:a@b.c"}, {"mbox": "mailto:d@e.f"}]
		},
		"verb": {"id": "v"}, "object": {"id": "o"}
	}`))
	require.NoError(t, err)
	require.NotNil(t, rec.Actor.Members)
	assert.JSONEq(t, `[{"mbox":"mailto:a@b.c"},{"mbox":"mailto:d@e.f"}]`, *rec.Actor.Members)
}

func TestParseResultOptional(t *testing.T) {
	p := New("en-US")

	rec, err := p.Parse([]byte(`{
		"actor": {"mbox": "mailto:a@b.c"},
		"verb": {"id": "v"},
		"object": {"id": "o"}
	}`))
	require.NoError(t, err)
	assert.False(t, rec.Result.HasResponse())
	assert.Nil(t, rec.Result.Response)
	assert.Nil(t, rec.Result.ScoreRaw)
}
