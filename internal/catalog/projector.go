package catalog

import (
	"fmt"
	"sort"
	"strings"

	"libraryclient/internal/models"
)

// DefaultPageSize is used when a non-positive page size is requested
const DefaultPageSize = 30

// FacetAll disables the genre facet
const FacetAll = "All"

// SearchMode selects how the free-text query is matched
type SearchMode string

const (
	// ModeField matches the query against a single field chosen by Field
	ModeField SearchMode = "field"
	// ModeAll matches the query against name, author and genre at once;
	// an item matches when any of the three contains the query
	ModeAll SearchMode = "all"
)

// Field is the field searched in ModeField
type Field string

const (
	FieldName   Field = "name"
	FieldAuthor Field = "author"
	FieldGenre  Field = "genre"
)

// ParseSearchMode validates a mode name
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeField:
		return ModeField, nil
	case ModeAll:
		return ModeAll, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want field or all)", s)
	}
}

// ParseField validates a field name
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case "", FieldName:
		return FieldName, nil
	case FieldAuthor:
		return FieldAuthor, nil
	case FieldGenre:
		return FieldGenre, nil
	default:
		return "", fmt.Errorf("unknown search field %q (want name, author or genre)", s)
	}
}

// Projector derives a filtered, paginated view from a catalog. The zero value
// searches by name only.
type Projector struct {
	Mode  SearchMode
	Field Field
}

// Page is the result of a projection
type Page struct {
	Items      []models.CatalogItem `json:"items"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"totalPages"`
	TotalItems int                  `json:"totalItems"`
}

// Project filters source by query and facet, then cuts out the requested page.
// The page is clamped: anything below 1, or past the last page, becomes 1.
// source is never modified and the returned items do not alias it.
func (p Projector) Project(source []models.CatalogItem, query, facet string, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := p.Filter(source, query, facet)

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if page < 1 || (totalPages > 0 && page > totalPages) || totalPages == 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	items := make([]models.CatalogItem, end-start)
	copy(items, filtered[start:end])

	return Page{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(filtered),
	}
}

// Filter returns the items of source matching both query and facet
func (p Projector) Filter(source []models.CatalogItem, query, facet string) []models.CatalogItem {
	q := strings.ToLower(strings.TrimSpace(query))
	f := strings.ToLower(strings.TrimSpace(facet))
	if strings.EqualFold(f, FacetAll) {
		f = ""
	}

	out := make([]models.CatalogItem, 0, len(source))
	for _, item := range source {
		if q != "" && !p.matchesQuery(item, q) {
			continue
		}
		if f != "" && !contains(item.GenreName(), f) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (p Projector) matchesQuery(item models.CatalogItem, q string) bool {
	if p.Mode == ModeAll {
		return contains(item.Name, q) || contains(item.AuthorName(), q) || contains(item.GenreName(), q)
	}

	switch p.Field {
	case "", FieldName:
		return contains(item.Name, q)
	case FieldAuthor:
		return contains(item.AuthorName(), q)
	case FieldGenre:
		return contains(item.GenreName(), q)
	default:
		return true
	}
}

// contains reports whether lowered needle occurs in haystack, ignoring case.
// An empty haystack never matches.
func contains(haystack, needle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}

// Facets returns FacetAll followed by the distinct genre names in source, sorted
func Facets(source []models.CatalogItem) []string {
	seen := make(map[string]struct{})
	var genres []string
	for _, item := range source {
		name := strings.TrimSpace(item.GenreName())
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		genres = append(genres, name)
	}
	sort.Strings(genres)
	return append([]string{FacetAll}, genres...)
}
