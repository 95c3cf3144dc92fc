package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libraryclient/internal/client"
	"libraryclient/internal/favorites"
	"libraryclient/internal/remote"
)

// appVersion is set by SetVersion from main
var appVersion = "dev"

// SetVersion records the build version shown by the version command
func SetVersion(v string) {
	appVersion = v
}

// cli carries the state shared by all commands of one invocation
type cli struct {
	newApp  func() (*App, error)
	app     *App
	output  string
	noColor bool
}

// NewRootCmd builds the command tree. newApp is called once per invocation,
// after flags are parsed, by every command that talks to the backend.
func NewRootCmd(newApp func() (*App, error)) *cobra.Command {
	c := &cli{newApp: newApp}

	root := &cobra.Command{
		Use:   "libraryclient",
		Short: "Browse and manage a library through its REST API",
		Long: `libraryclient talks to a library REST backend: browse and search the
catalog, keep favorites, review books, follow loans and read statistics.

Configuration comes from the environment (or a .env file), see LIBRARY_API_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.output, "output", "o", outputText, "Output format: text, json or yaml")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "Disable colored output")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if c.noColor {
			color.NoColor = true
		}
		if err := validateOutput(c.output); err != nil {
			return err
		}
		if cmd.Name() == "version" {
			return nil
		}
		// only the long-running server logs at info unless asked
		if cmd.Name() != "serve" && os.Getenv("LOG_LEVEL") == "" {
			os.Setenv("LOG_LEVEL", "warn")
		}

		app, err := c.newApp()
		if err != nil {
			return err
		}
		c.app = app
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if c.app == nil {
			return nil
		}
		return c.app.Close()
	}

	root.AddCommand(
		c.newBooksCmd(),
		c.newFacetsCmd(),
		c.newFavoritesCmd(),
		c.newCommentsCmd(),
		c.newBorrowsCmd(),
		c.newReturnCmd(),
		c.newStatsCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newWhoamiCmd(),
		c.newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute is the entry point called from main.
func Execute() {
	root := NewRootCmd(New)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), describeError(err))
		os.Exit(1)
	}
}

// describeError turns well-known errors into a hint for the terminal
func describeError(err error) string {
	var rerr *remote.Error
	switch {
	case errors.Is(err, client.ErrAuthRequired):
		return "login required (run: libraryclient login)"
	case errors.Is(err, favorites.ErrFavoriteEntryMissing):
		return "favorites were out of date and have been refreshed, try again"
	case errors.As(err, &rerr) && rerr.Message != "":
		return fmt.Sprintf("backend refused (%d): %s", rerr.StatusCode, rerr.Message)
	default:
		return err.Error()
	}
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}

// ok prints a green success line.
func ok(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintln(w, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintln(w, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func header(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintln(w, color.CyanString(fmt.Sprintf(format, a...)))
}
