package cell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/pkg/cell"
)

func TestParse(t *testing.T) {
	addr, err := cell.Parse("Sheet1!B12")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", addr.Sheet)
	assert.Equal(t, 2, addr.Col)
	assert.Equal(t, 12, addr.Row)
	assert.Equal(t, "Sheet1!B12", addr.String())
}

func TestParseStripsAbsoluteMarkers(t *testing.T) {
	addr, err := cell.Parse("Sheet1!$B$12")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!B12", addr.String())
}

func TestParseQuotedSheet(t *testing.T) {
	addr, err := cell.Parse("'My Budget'!A1")
	require.NoError(t, err)
	assert.Equal(t, "My Budget", addr.Sheet)
	assert.Equal(t, "My Budget!A1", addr.String())
}

func TestParseWithDefaultSheet(t *testing.T) {
	addr, err := cell.ParseWith("C3", "Data")
	require.NoError(t, err)
	assert.Equal(t, "Data!C3", addr.String())
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "Sheet1!", "!A1", "Sheet1!A", "Sheet1!1", "Sheet1!A0"} {
		_, err := cell.Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestColumnNameRoundTrip(t *testing.T) {
	cases := map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for n, name := range cases {
		assert.Equal(t, name, cell.ColumnName(n))
		assert.Equal(t, n, cell.ColumnNumber(name))
	}
}

func TestNeighbors(t *testing.T) {
	addr, err := cell.Parse("Sheet1!B2")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A2", addr.Left().String())
	assert.Equal(t, "Sheet1!C2", addr.Right().String())
	assert.Equal(t, "Sheet1!B1", addr.Above().String())
	assert.Equal(t, "Sheet1!B3", addr.Below().String())
}

func TestParseRange(t *testing.T) {
	r, err := cell.ParseRange("Sheet1!A1:B3")
	require.NoError(t, err)
	assert.Equal(t, 6, r.Size())
	assert.Equal(t, "Sheet1!A1:B3", r.String())

	addrs, ok := r.Expand(10)
	require.True(t, ok)
	require.Len(t, addrs, 6)
	assert.Equal(t, "Sheet1!A1", addrs[0].String())
	assert.Equal(t, "Sheet1!B3", addrs[5].String())
}

func TestRangeNormalizesBounds(t *testing.T) {
	r, err := cell.ParseRange("Sheet1!B3:A1")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A1:B3", r.String())
}

func TestRangeExpandCap(t *testing.T) {
	r, err := cell.ParseRange("Sheet1!A1:A2000")
	require.NoError(t, err)
	assert.Equal(t, 2000, r.Size())

	addrs, ok := r.Expand(1000)
	assert.False(t, ok)
	assert.Nil(t, addrs)
}

func TestRangeContains(t *testing.T) {
	r, err := cell.ParseRange("Sheet1!B2:D4")
	require.NoError(t, err)

	inside, _ := cell.Parse("Sheet1!C3")
	outside, _ := cell.Parse("Sheet1!E3")
	otherSheet, _ := cell.Parse("Sheet2!C3")
	assert.True(t, r.Contains(inside))
	assert.False(t, r.Contains(outside))
	assert.False(t, r.Contains(otherSheet))
}

func TestIsLocalRef(t *testing.T) {
	assert.True(t, cell.IsLocalRef("A1"))
	assert.True(t, cell.IsLocalRef("$AB$12"))
	assert.False(t, cell.IsLocalRef("SUM"))
	assert.False(t, cell.IsLocalRef("A"))
	assert.False(t, cell.IsLocalRef("1A"))
}
