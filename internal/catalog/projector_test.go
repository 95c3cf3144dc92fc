package catalog

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryclient/internal/models"
)

func sampleCatalog() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: 1, Name: "Dune", Author: &models.Author{ID: 1, Fullname: "Frank Herbert"}, Genre: &models.Genre{ID: 1, Name: "Khoa học viễn tưởng"}, Quantity: 3},
		{ID: 2, Name: "The Shining", Author: &models.Author{ID: 2, Fullname: "Stephen King"}, Genre: &models.Genre{ID: 2, Name: "Kinh dị"}, Quantity: 1},
		{ID: 3, Name: "It", Author: &models.Author{ID: 2, Fullname: "Stephen King"}, Genre: &models.Genre{ID: 2, Name: "Kinh dị"}},
		{ID: 4, Name: "Sapiens", Author: &models.Author{ID: 3, Fullname: "Yuval Noah Harari"}, Genre: &models.Genre{ID: 3, Name: "Lịch sử"}, Quantity: 2},
		{ID: 5, Name: "Untitled draft"},
	}
}

func ids(items []models.CatalogItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestProjector_FieldMode(t *testing.T) {
	testCases := []struct {
		name  string
		field Field
		query string
		want  []int64
	}{
		{"empty query matches everything", FieldName, "", []int64{1, 2, 3, 4, 5}},
		{"name substring case-insensitive", FieldName, "SHIN", []int64{2}},
		{"name does not look at author", FieldName, "king", []int64{}},
		{"author field", FieldAuthor, "king", []int64{2, 3}},
		{"author field skips items without author", FieldAuthor, "draft", []int64{}},
		{"genre field", FieldGenre, "lịch", []int64{4}},
		{"query is trimmed", FieldName, "  dune  ", []int64{1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := Projector{Mode: ModeField, Field: tc.field}
			page := p.Project(sampleCatalog(), tc.query, FacetAll, 1, 10)
			assert.Equal(t, tc.want, ids(page.Items))
		})
	}
}

func TestProjector_AllFieldsMode(t *testing.T) {
	p := Projector{Mode: ModeAll}

	assert.Equal(t, []int64{2, 3}, ids(p.Project(sampleCatalog(), "king", "", 1, 10).Items))
	assert.Equal(t, []int64{2, 3}, ids(p.Project(sampleCatalog(), "kinh", "", 1, 10).Items))
	assert.Equal(t, []int64{4}, ids(p.Project(sampleCatalog(), "sapiens", "", 1, 10).Items))
}

func TestProjector_FacetCombinesWithQuery(t *testing.T) {
	p := Projector{Mode: ModeAll}

	page := p.Project(sampleCatalog(), "", "kinh dị", 1, 10)
	assert.Equal(t, []int64{2, 3}, ids(page.Items))

	page = p.Project(sampleCatalog(), "shining", "Kinh", 1, 10)
	assert.Equal(t, []int64{2}, ids(page.Items))

	page = p.Project(sampleCatalog(), "dune", "Kinh", 1, 10)
	assert.Empty(t, page.Items)

	page = p.Project(sampleCatalog(), "", "all", 1, 10)
	assert.Len(t, page.Items, 5, "facet All is case-insensitive")
}

func TestProjector_Pagination(t *testing.T) {
	p := Projector{}
	source := make([]models.CatalogItem, 7)
	for i := range source {
		source[i] = models.CatalogItem{ID: int64(i + 1), Name: fmt.Sprintf("Book %d", i+1)}
	}

	page := p.Project(source, "", "", 2, 3)
	assert.Equal(t, []int64{4, 5, 6}, ids(page.Items))
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 7, page.TotalItems)
	assert.Equal(t, 2, page.Page)

	page = p.Project(source, "", "", 3, 3)
	assert.Equal(t, []int64{7}, ids(page.Items))

	// past the end resets to the first page instead of failing
	page = p.Project(source, "", "", 9, 3)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, []int64{1, 2, 3}, ids(page.Items))

	// non-positive page size falls back to the default
	page = p.Project(source, "", "", 1, 0)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 7)
}

func TestProjector_ClampedPageInRange(t *testing.T) {
	p := Projector{}
	for count := 0; count <= 12; count++ {
		source := make([]models.CatalogItem, count)
		for i := range source {
			source[i] = models.CatalogItem{ID: int64(i + 1), Name: "x"}
		}
		for pageSize := 1; pageSize <= 5; pageSize++ {
			for requested := -2; requested <= 15; requested++ {
				page := p.Project(source, "", "", requested, pageSize)
				maxPage := (count + pageSize - 1) / pageSize
				if maxPage < 1 {
					maxPage = 1
				}
				require.GreaterOrEqual(t, page.Page, 1, "count=%d size=%d req=%d", count, pageSize, requested)
				require.LessOrEqual(t, page.Page, maxPage, "count=%d size=%d req=%d", count, pageSize, requested)
				require.LessOrEqual(t, len(page.Items), pageSize)
			}
		}
	}
}

func TestProjector_PureAndIdempotent(t *testing.T) {
	p := Projector{Mode: ModeAll}
	source := sampleCatalog()
	before := sampleCatalog()

	first := p.Project(source, "king", "kinh", 1, 1)
	second := p.Project(source, "king", "kinh", 1, 1)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("projection not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, source); diff != "" {
		t.Errorf("source mutated (-before +after):\n%s", diff)
	}

	// returned items must not alias source
	first.Items[0].Name = "changed"
	assert.Equal(t, "The Shining", source[1].Name)
}

func TestFacets(t *testing.T) {
	facets := Facets(sampleCatalog())
	assert.Equal(t, []string{FacetAll, "Khoa học viễn tưởng", "Kinh dị", "Lịch sử"}, facets)
	assert.Equal(t, []string{FacetAll}, Facets(nil))
}

func TestCriteria_Navigation(t *testing.T) {
	c := NewCriteria()
	assert.Equal(t, 1, c.Page)
	assert.Equal(t, FacetAll, c.Facet)

	c, ok := c.GoToPage(3, 4)
	require.True(t, ok)
	assert.Equal(t, 3, c.Page)

	_, ok = c.GoToPage(5, 4)
	assert.False(t, ok)
	_, ok = c.GoToPage(0, 4)
	assert.False(t, ok)

	c = c.WithQuery("king")
	assert.Equal(t, 1, c.Page)
	assert.Equal(t, "king", c.Query)

	c, _ = c.GoToPage(2, 2)
	c = c.WithFacet("")
	assert.Equal(t, 1, c.Page)
	assert.Equal(t, FacetAll, c.Facet)
}

func TestParseSearchModeAndField(t *testing.T) {
	mode, err := ParseSearchMode("ALL")
	require.NoError(t, err)
	assert.Equal(t, ModeAll, mode)

	mode, err = ParseSearchMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeField, mode)

	_, err = ParseSearchMode("fuzzy")
	assert.Error(t, err)

	field, err := ParseField("Author")
	require.NoError(t, err)
	assert.Equal(t, FieldAuthor, field)

	_, err = ParseField("isbn")
	assert.Error(t, err)
}
