package geom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStatusCSV(t *testing.T) {
	t.Parallel()
	in := "ISO3, Status, note\nfra, Visited, paris\n,planned,\nJPN,PLANNED,\nshort\n"
	rows, err := ReadStatusCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []StatusRow{
		{Code: "FRA", Status: "visited"},
		{Code: "JPN", Status: "planned"},
	}, rows)
}

func TestReadStatusCSVMissingColumns(t *testing.T) {
	t.Parallel()
	_, err := ReadStatusCSV(strings.NewReader("lat,lon\n1,2\n"))
	require.Error(t, err)

	_, err = ReadStatusCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestReadCodeList(t *testing.T) {
	t.Parallel()
	codes, err := ReadCodeList(strings.NewReader("# trips\nfra\n\n jp \nESP\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"FRA", "JP", "ESP"}, codes)

	codes, err = ReadCodeList(strings.NewReader("year,iso_a3\n2019,prt\n2021,\n2023,nor\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"PRT", "NOR"}, codes)

	codes, err = ReadCodeList(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, codes)
}
