package simple

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_GetReference(t *testing.T) {
	g := New()
	pattern := regexp.MustCompile(`^BK[0-9A-F]{8}$`)
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		ref, err := g.GetReference(context.Background())
		require.NoError(t, err)
		assert.Regexp(t, pattern, ref)

		seen[ref] = struct{}{}
	}

	assert.Greater(t, len(seen), 90)
}

func TestGenerator_GetID(t *testing.T) {
	id, err := New().GetID(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}
