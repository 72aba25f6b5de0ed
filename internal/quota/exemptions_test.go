package quota

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExemptionsSeed(t *testing.T) {
	ctx := context.Background()
	ex := NewMemoryExemptions("a", "", "b", "a")

	ids, err := ex.List(ctx)
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)

	ok, err := ex.Contains(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExemptionsRemoveTwice(t *testing.T) {
	ctx := context.Background()
	ex := NewMemoryExemptions("a")

	changed, err := ex.Remove(ctx, "a")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = ex.Remove(ctx, "a")
	require.NoError(t, err)
	assert.False(t, changed)
}
