package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"libraryclient/internal/catalog"
	"libraryclient/internal/client"
	"libraryclient/internal/models"
)

// loadCatalog fetches the catalog and the actor's favorites. Favorites are
// best effort: without them the listing just has no stars.
func (c *cli) loadCatalog(ctx context.Context, w io.Writer) error {
	s := c.app.Session()
	if err := s.LoadCatalog(ctx); err != nil {
		return err
	}
	if err := s.SyncFavorites(ctx); err != nil {
		c.app.Logger().Debug("Favorites unavailable", zap.Error(err))
		warn(w, "favorites unavailable: %v", err)
	}
	return nil
}

func (c *cli) newBooksCmd() *cobra.Command {
	var (
		facet string
		page  int
		mode  string
		field string
	)

	cmd := &cobra.Command{
		Use:   "books [query]",
		Short: "Search the catalog",
		Long: `Search the catalog and show one page of results.

The query is matched case-insensitively. By default it is matched against the
book name; --field picks another field and --mode all matches name, author and
genre at once. --facet narrows the results to one genre.`,
		Example: `  libraryclient books
  libraryclient books dune
  libraryclient books --mode all herbert
  libraryclient books --facet Science --page 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projector, err := c.projector(mode, field)
			if err != nil {
				return err
			}
			if err := c.loadCatalog(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			result := projector.Project(c.app.Session().Items(), query, facet, page, c.app.Config().PageSize)
			if page > result.TotalPages && result.TotalPages > 0 {
				warn(cmd.ErrOrStderr(), "page %d does not exist, showing page 1", page)
			}

			return c.render(cmd, result, func(w io.Writer) {
				printPage(w, result)
			})
		},
	}

	cmd.Flags().StringVar(&facet, "facet", catalog.FacetAll, "Only show books of this genre")
	cmd.Flags().IntVar(&page, "page", 1, "Page to show")
	cmd.Flags().StringVar(&mode, "mode", "", "Search mode: field or all (default from LIBRARY_SEARCH_MODE)")
	cmd.Flags().StringVar(&field, "field", "", "Field searched in field mode: name, author or genre (default from LIBRARY_SEARCH_FIELD)")
	return cmd
}

// projector starts from the configured search settings and applies overrides
func (c *cli) projector(mode, field string) (catalog.Projector, error) {
	cfg := c.app.Config()
	p := catalog.Projector{Mode: cfg.SearchMode, Field: cfg.SearchField}
	if mode != "" {
		m, err := catalog.ParseSearchMode(mode)
		if err != nil {
			return p, err
		}
		p.Mode = m
	}
	if field != "" {
		f, err := catalog.ParseField(field)
		if err != nil {
			return p, err
		}
		p.Field = f
	}
	return p, nil
}

func printPage(w io.Writer, page catalog.Page) {
	if page.TotalItems == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	header(w, "Page %d/%d (%d books)", page.Page, page.TotalPages, page.TotalItems)
	for _, item := range page.Items {
		printItem(w, item)
	}
}

func printItem(w io.Writer, item models.CatalogItem) {
	star := " "
	if item.IsFavorite {
		star = color.YellowString("★")
	}

	var details []string
	if a := item.AuthorName(); a != "" {
		details = append(details, a)
	}
	if g := item.GenreName(); g != "" {
		details = append(details, color.HiBlackString(g))
	}
	fmt.Fprintf(w, "%s %5d  %s", star, item.ID, item.Name)
	if len(details) > 0 {
		fmt.Fprintf(w, "  (%s)", strings.Join(details, ", "))
	}
	fmt.Fprintln(w)
}

func (c *cli) newFacetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "List the genres available as facets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.app.Session()
			if err := s.LoadCatalog(cmd.Context()); err != nil {
				return err
			}
			facets := s.Facets()
			return c.render(cmd, facets, func(w io.Writer) {
				for _, f := range facets {
					fmt.Fprintln(w, f)
				}
			})
		},
	}
}

func (c *cli) newFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List or toggle favorite books",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your favorite books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.app.Session()
			if !s.IsAuthenticated() {
				return client.ErrAuthRequired
			}
			if err := s.LoadCatalog(cmd.Context()); err != nil {
				return err
			}
			if err := s.SyncFavorites(cmd.Context()); err != nil {
				return err
			}

			favs := make([]models.CatalogItem, 0)
			for _, item := range s.Items() {
				if item.IsFavorite {
					favs = append(favs, item)
				}
			}
			return c.render(cmd, favs, func(w io.Writer) {
				if len(favs) == 0 {
					fmt.Fprintln(w, "No favorites yet.")
					return
				}
				for _, item := range favs {
					printItem(w, item)
				}
			})
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <bookId>",
		Short: "Add a book to your favorites, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			s := c.app.Session()
			if !s.IsAuthenticated() {
				return client.ErrAuthRequired
			}
			if err := s.LoadCatalog(cmd.Context()); err != nil {
				return err
			}
			if err := s.SyncFavorites(cmd.Context()); err != nil {
				return err
			}

			action, err := s.ToggleFavorite(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			item, _ := s.Item(bookID)
			result := struct {
				Action     string `json:"action" yaml:"action"`
				BookID     int64  `json:"bookId" yaml:"bookId"`
				IsFavorite bool   `json:"isFavorite" yaml:"isFavorite"`
			}{string(action), bookID, item.IsFavorite}

			return c.render(cmd, result, func(w io.Writer) {
				if item.IsFavorite {
					ok(w, "Added %q to favorites", item.Name)
				} else {
					ok(w, "Removed %q from favorites", item.Name)
				}
			})
		},
	}

	cmd.AddCommand(list, toggle)
	return cmd
}
