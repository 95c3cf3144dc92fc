package app

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libraryclient/internal/borrow"
	"libraryclient/internal/models"
)

func (c *cli) newBorrowsCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "borrows",
		Short: "List loans, currently borrowed first",
		Long: `List your own loans, or with --user the loans of any patron
(librarians and admins only).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.app.Session()
			var (
				records []models.BorrowRecord
				err     error
			)
			if userID > 0 {
				records, err = s.PatronBorrows(cmd.Context(), userID)
			} else {
				records, err = s.MyBorrows(cmd.Context())
			}
			if err != nil {
				return err
			}

			views := borrow.Views(records)
			return c.render(cmd, views, func(w io.Writer) {
				printBorrows(w, views)
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Patron id (librarians and admins)")
	return cmd
}

func (c *cli) newReturnCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:     "return <recordId>",
		Short:   "Mark a loan as returned (librarians and admins)",
		Example: `  libraryclient return 301 --user 3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseID("borrow record", args[0])
			if err != nil {
				return err
			}
			if userID <= 0 {
				return fmt.Errorf("--user is required")
			}

			records, err := c.app.Session().ReturnBook(cmd.Context(), recordID, userID)
			if err != nil {
				return err
			}
			views := borrow.Views(records)
			return c.render(cmd, views, func(w io.Writer) {
				ok(w, "Loan %d returned", recordID)
				printBorrows(w, views)
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Patron who holds the loan (required)")
	return cmd
}

func printBorrows(w io.Writer, views []borrow.View) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No loans.")
		return
	}

	borrowed, returned := 0, 0
	for _, v := range views {
		label := color.YellowString(v.Label)
		if borrow.Classify(v.BorrowRecord) == borrow.Returned {
			label = color.GreenString(v.Label)
			returned++
		} else {
			borrowed++
		}

		name := v.Book.Name
		if name == "" {
			name = fmt.Sprintf("book %d", v.Book.ID)
		}
		fmt.Fprintf(w, "#%-5d %-40s %s", v.ID, name, label)
		if !v.CreatedDate.IsZero() {
			fmt.Fprint(w, color.HiBlackString("  since "+v.CreatedDate.Format("2006-01-02")))
		}
		if !v.ReturnedDate.IsZero() {
			fmt.Fprint(w, color.HiBlackString("  back "+v.ReturnedDate.Format("2006-01-02")))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d borrowed, %d returned\n", borrowed, returned)
}
