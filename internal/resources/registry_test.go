package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoundTrip(t *testing.T) {
	for _, res := range All() {
		parsed, ok := Parse(res.String())
		assert.True(t, ok, res.String())
		assert.Equal(t, res, parsed)
	}
}

func TestParseUnknownName(t *testing.T) {
	_, ok := Parse("invoices")
	assert.False(t, ok)
	_, ok = Parse("")
	assert.False(t, ok)
}

func TestCanonicalQueryDeterministicOrder(t *testing.T) {
	a := CanonicalQuery(map[string]string{"a": "1", "b": "2"})
	b := CanonicalQuery(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
	assert.Equal(t, "a=1&b=2", a)
}

func TestCanonicalQueryEscapes(t *testing.T) {
	assert.Equal(t, "q=a+b%26c", CanonicalQuery(map[string]string{"q": "a b&c"}))
}

func TestListAndDetailPaths(t *testing.T) {
	assert.Equal(t, "events", ListPath(Events, nil))
	assert.Equal(t, "events?page=2", ListPath(Events, map[string]string{"page": "2"}))
	assert.Equal(t, "events/42", DetailPath(Events, "42", nil))
	assert.Equal(t, "open-events", OpenPath(Events))
}

func TestMutationPathConventions(t *testing.T) {
	assert.Equal(t, "events", MutationPath(Events, VerbCreate, ""))
	assert.Equal(t, "events/42", MutationPath(Events, VerbUpdate, "42"))
	assert.Equal(t, "events/42", MutationPath(Events, VerbPatch, "42"))
	assert.Equal(t, "events-delete/42", MutationPath(Events, VerbDelete, "42"))
	assert.Equal(t, "events-toggle-status/42", MutationPath(Events, VerbToggleStatus, "42"))
	assert.Equal(t, "users-change-password/7", MutationPath(Users, VerbChangePassword, "7"))
}

func TestVerbMethods(t *testing.T) {
	assert.Equal(t, "POST", VerbCreate.Method())
	assert.Equal(t, "PUT", VerbUpdate.Method())
	assert.Equal(t, "PATCH", VerbPatch.Method())
	assert.Equal(t, "POST", VerbDelete.Method())
	assert.Equal(t, "POST", VerbToggleStatus.Method())
}
