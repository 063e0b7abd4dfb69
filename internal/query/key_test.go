package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-logistics/backoffice/internal/resources"
)

func TestCacheKeyIgnoresParamOrder(t *testing.T) {
	a := cacheKey(resources.Events, "", map[string]string{"a": "1", "b": "2"})
	b := cacheKey(resources.Events, "", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
}

func TestCacheKeySeparatesResourceAndID(t *testing.T) {
	list := cacheKey(resources.Events, "", nil)
	detail := cacheKey(resources.Events, "42", nil)
	other := cacheKey(resources.News, "", nil)
	assert.NotEqual(t, list, detail)
	assert.NotEqual(t, list, other)
}

func TestCacheKeyPrefixedByResource(t *testing.T) {
	key := cacheKey(resources.JobOffers, "7", map[string]string{"lang": "en"})
	assert.Equal(t, "job-offers|7|lang=en", key)
}

func TestDigestStable(t *testing.T) {
	key := cacheKey(resources.Events, "", map[string]string{"a": "1"})
	assert.Equal(t, Digest(key), Digest(key))
	assert.Len(t, Digest(key), 16)
	assert.NotEqual(t, Digest(key), Digest(key+"x"))
}
