package envfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("development")
	require.NoError(t, err)
	assert.Equal(t, TierDevelopment, tier)

	tier, err = ParseTier("production")
	require.NoError(t, err)
	assert.Equal(t, TierProduction, tier)

	_, err = ParseTier("staging")
	assert.Error(t, err)

	_, err = ParseTier("")
	assert.Error(t, err)
}

func TestDocumentBytes(t *testing.T) {
	assert.Nil(t, Document{}.Bytes())

	doc := Document{"A=1", "B=2"}
	assert.Equal(t, "A=1\nB=2\n", string(doc.Bytes()))
	assert.Equal(t, 2, doc.Len())
}

func TestDocumentAssignments(t *testing.T) {
	doc := Document{
		"A=1",
		"# note",
		"URL=http://host/path?x=1",
		"=orphan",
		"A=2",
	}

	got := doc.Assignments()
	require.Len(t, got, 3)
	assert.Equal(t, Assignment{Key: "A", Value: "1"}, got[0])

	// Split happens at the first equals sign only.
	assert.Equal(t, Assignment{Key: "URL", Value: "http://host/path?x=1"}, got[1])

	// Duplicates are preserved in order.
	assert.Equal(t, Assignment{Key: "A", Value: "2"}, got[2])
}
