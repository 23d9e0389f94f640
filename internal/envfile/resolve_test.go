package envfile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNestedReferences(t *testing.T) {
	doc := Document{
		"HOST=db",
		"PORT=5432",
		"URL=${HOST}:${PORT}/app",
	}

	resolved, unresolved := Resolve(doc, StrategySinglePass)
	assert.Empty(t, unresolved)
	assert.Equal(t, "URL=db:5432/app", resolved[2])
}

func TestResolveLastWriteWins(t *testing.T) {
	// Later assignments overwrite earlier table entries; both lines stay in
	// the document.
	doc := Document{
		"PORT=1000",
		"PORT=2000",
		"ADDR=:${PORT}",
	}

	resolved, unresolved := Resolve(doc, StrategySinglePass)
	assert.Empty(t, unresolved)
	assert.Equal(t, Document{"PORT=1000", "PORT=2000", "ADDR=:2000"}, resolved)
}

func TestResolveForwardReference(t *testing.T) {
	// The table is built over the whole document before substitution, so a
	// line may reference a key assigned later.
	doc := Document{
		"URL=${PORT}/x",
		"PORT=9",
	}

	resolved, unresolved := Resolve(doc, StrategySinglePass)
	assert.Empty(t, unresolved)
	assert.Equal(t, "URL=9/x", resolved[0])
}

func TestResolveUnresolvedReferenceStaysLiteral(t *testing.T) {
	doc := Document{"URL=${MISSING}/x"}

	resolved, unresolved := Resolve(doc, StrategySinglePass)
	assert.Equal(t, Document{"URL=${MISSING}/x"}, resolved)

	require.Len(t, unresolved, 1)
	assert.Equal(t, "MISSING", unresolved[0].Name)
	assert.Equal(t, 1, unresolved[0].Line)
}

func TestResolveBareDollarReferences(t *testing.T) {
	doc := Document{
		"BASE_DIR=/opt/app",
		"LOG_DIR=$BASE_DIR/logs",
		"PASSWORD=pa$$word",
	}

	resolved, _ := Resolve(doc, StrategySinglePass)
	assert.Equal(t, "LOG_DIR=/opt/app/logs", resolved[1])

	// $word matches no binding and stays literal.
	assert.Equal(t, "PASSWORD=pa$$word", resolved[2])
}

func TestResolveSubstitutesPassthroughLines(t *testing.T) {
	doc := Document{
		"NAME=svc",
		"# deployed as ${NAME}",
	}

	resolved, _ := Resolve(doc, StrategySinglePass)
	assert.Equal(t, "# deployed as svc", resolved[1])
}

func TestResolveOnlySimpleAssignmentsEnterTable(t *testing.T) {
	doc := Document{
		"GREETING=hello world",
		"MSG=${GREETING}",
		"2BAD=x",
		"REF=${2BAD}",
	}

	resolved, unresolved := Resolve(doc, StrategySinglePass)

	// A value with embedded whitespace is not substitutable; neither is an
	// invalid identifier key.
	assert.Equal(t, "MSG=${GREETING}", resolved[1])
	assert.Equal(t, "REF=${2BAD}", resolved[3])
	assert.Len(t, unresolved, 2)
}

func TestResolveEmptyValueBinds(t *testing.T) {
	doc := Document{
		"PREFIX=",
		"NAME=${PREFIX}app",
	}

	resolved, unresolved := Resolve(doc, StrategySinglePass)
	assert.Empty(t, unresolved)
	assert.Equal(t, "NAME=app", resolved[1])
}

func TestResolveNeverReadsProcessEnv(t *testing.T) {
	os.Setenv("ENVSHIP_RESOLVE_PROBE", "leaked")
	defer os.Unsetenv("ENVSHIP_RESOLVE_PROBE")

	doc := Document{"X=${ENVSHIP_RESOLVE_PROBE}"}

	resolved, unresolved := Resolve(doc, StrategySinglePass)
	assert.Equal(t, "X=${ENVSHIP_RESOLVE_PROBE}", resolved[0])
	assert.Len(t, unresolved, 1)
}

func TestResolveSinglePassLeavesChainedReferences(t *testing.T) {
	doc := Document{
		"A=${B}",
		"B=${C}",
		"C=x",
	}

	resolved, unresolved := Resolve(doc, StrategySinglePass)

	// One pass substitutes the literal scan-time values: A picks up B's
	// unexpanded value.
	assert.Equal(t, "A=${C}", resolved[0])
	assert.Equal(t, "B=x", resolved[1])
	require.Len(t, unresolved, 1)
	assert.Equal(t, "C", unresolved[0].Name)
}

func TestResolveFixedPointConvergesChains(t *testing.T) {
	doc := Document{
		"A=${B}",
		"B=${C}",
		"C=x",
	}

	resolved, unresolved := Resolve(doc, StrategyFixedPoint)
	assert.Empty(t, unresolved)
	assert.Equal(t, Document{"A=x", "B=x", "C=x"}, resolved)
}

func TestResolveFixedPointTerminatesOnCycle(t *testing.T) {
	doc := Document{
		"A=${B}",
		"B=${A}",
	}

	resolved, unresolved := Resolve(doc, StrategyFixedPoint)
	require.Len(t, resolved, 2)
	assert.NotEmpty(t, unresolved)
}

func TestResolveDeterministic(t *testing.T) {
	doc := Document{
		"A=1",
		"B=${A}-${A}",
		"C=${B}",
		"D=${MISSING}",
	}

	first, _ := Resolve(doc, StrategyFixedPoint)
	second, _ := Resolve(doc, StrategyFixedPoint)
	assert.Equal(t, first, second)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategySinglePass, s)

	s, err = ParseStrategy("fixed-point")
	require.NoError(t, err)
	assert.Equal(t, StrategyFixedPoint, s)

	_, err = ParseStrategy("recursive")
	assert.Error(t, err)
}
