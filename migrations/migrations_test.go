package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_PairsUpAndDown(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("migration %s is neither up nor down", n)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestFS_CreatesCollectionsTable(t *testing.T) {
	data, err := FS.ReadFile("000001_create_ledger_collections.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "ledger_collections")
	assert.Contains(t, string(data), "version")
}
