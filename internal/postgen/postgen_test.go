package postgen

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateGeneratorIsDeterministic(t *testing.T) {
	summary := ChangeSummary{
		Slug:       "2026-08-30-deck-repair",
		FilesAdded: []string{"b2.jpg", "a1.jpg"},
		PhotoCount: 2,
		StartedAt:  time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
	gen := TemplateGenerator{}

	first, err := gen.Generate(context.Background(), summary)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), summary)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, "Project: Deck Repair", first.Title)
	assert.Contains(t, first.Body, "# Deck Repair")
	assert.Contains(t, first.Body, "2026-08-30")
	assert.Contains(t, first.Body, "![a1.jpg](/assets/images/2026-08-30-deck-repair/a1.jpg)")
	assert.Contains(t, first.Body, "![b2.jpg](/assets/images/2026-08-30-deck-repair/b2.jpg)")
}

func TestTemplateGeneratorSortsFiles(t *testing.T) {
	summary := ChangeSummary{Slug: "2026-08-30-shed", FilesAdded: []string{"z.jpg", "a.jpg", "m.jpg"}}
	post, err := TemplateGenerator{}.Generate(context.Background(), summary)
	require.NoError(t, err)

	assert.Less(t, strings.Index(post.Body, "a.jpg"), strings.Index(post.Body, "m.jpg"))
	assert.Less(t, strings.Index(post.Body, "m.jpg"), strings.Index(post.Body, "z.jpg"))
}

func TestTemplateGeneratorZeroStart(t *testing.T) {
	post, err := TemplateGenerator{}.Generate(context.Background(), ChangeSummary{Slug: "2026-08-30-fence"})
	require.NoError(t, err)
	assert.Contains(t, post.Body, "recently")
}
