package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libraryclient/internal/comments"
)

func (c *cli) newCommentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read, write and delete book reviews",
	}
	cmd.AddCommand(c.newCommentsListCmd(), c.newCommentsAddCmd(), c.newCommentsDeleteCmd())
	return cmd
}

func (c *cli) newCommentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <bookId>",
		Short: "Show the reviews of a book, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			views, err := c.app.Session().Comments(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			return c.render(cmd, views, func(w io.Writer) {
				printComments(w, views)
			})
		},
	}
}

func (c *cli) newCommentsAddCmd() *cobra.Command {
	var (
		rating int
		text   string
	)

	cmd := &cobra.Command{
		Use:     "add <bookId>",
		Short:   "Review a book",
		Example: `  libraryclient comments add 1 --rating 5 --text "A classic"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			views, err := c.app.Session().AddComment(cmd.Context(), bookID, text, rating)
			if err != nil {
				return err
			}
			return c.render(cmd, views, func(w io.Writer) {
				ok(w, "Review posted")
				printComments(w, views)
			})
		},
	}

	cmd.Flags().IntVar(&rating, "rating", 0, "Rating from 1 to 5 (required)")
	cmd.Flags().StringVar(&text, "text", "", "Review text (required)")
	_ = cmd.MarkFlagRequired("rating")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func (c *cli) newCommentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <bookId> <commentId>",
		Short: "Delete a review you wrote (admins may delete any review)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			commentID, err := parseID("comment", args[1])
			if err != nil {
				return err
			}

			route, views, err := c.app.Session().DeleteComment(cmd.Context(), bookID, commentID)
			if err != nil {
				return err
			}
			result := struct {
				Route    comments.Route  `json:"route" yaml:"route"`
				Comments []comments.View `json:"comments" yaml:"comments"`
			}{route, views}

			return c.render(cmd, result, func(w io.Writer) {
				ok(w, "Deleted review %d (%s)", commentID, route)
				printComments(w, views)
			})
		},
	}
}

func printComments(w io.Writer, views []comments.View) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No reviews yet.")
		return
	}
	for _, v := range views {
		r := min(max(v.Rating, 0), 5)
		stars := strings.Repeat("★", r) + strings.Repeat("☆", 5-r)
		line := fmt.Sprintf("#%d %s %s", v.ID, color.YellowString(stars), v.DisplayName)
		if !v.CreatedAt.IsZero() {
			line += color.HiBlackString("  " + v.CreatedAt.Format("2006-01-02 15:04"))
		}
		if v.CanDelete {
			line += color.HiBlackString("  [deletable]")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "    %s\n", v.Content)
	}
}
