package catalog

import "libraryclient/internal/models"

// Criteria is the navigation state of a catalog view: the active query, facet
// and page. Changing the query or facet always returns to the first page.
type Criteria struct {
	Query string `json:"query"`
	Facet string `json:"facet"`
	Page  int    `json:"page"`
}

// NewCriteria returns the default criteria: no query, all genres, first page
func NewCriteria() Criteria {
	return Criteria{Facet: FacetAll, Page: 1}
}

// WithQuery sets the query and rewinds to page 1
func (c Criteria) WithQuery(query string) Criteria {
	c.Query = query
	c.Page = 1
	return c
}

// WithFacet sets the facet and rewinds to page 1
func (c Criteria) WithFacet(facet string) Criteria {
	if facet == "" {
		facet = FacetAll
	}
	c.Facet = facet
	c.Page = 1
	return c
}

// GoToPage moves to page when it lies within [1, totalPages].
// Out-of-range requests leave the criteria unchanged and report false.
func (c Criteria) GoToPage(page, totalPages int) (Criteria, bool) {
	if page < 1 || page > totalPages {
		return c, false
	}
	c.Page = page
	return c, true
}

// Apply projects source with these criteria
func (c Criteria) Apply(p Projector, source []models.CatalogItem, pageSize int) Page {
	return p.Project(source, c.Query, c.Facet, c.Page, pageSize)
}
