package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/leyningapp/leyn/internal/calendar"
	"github.com/leyningapp/leyn/leyning"
)

var now = time.Now

var (
	upcoming int

	readingsCmd = &cobra.Command{
		Use:   "readings [QUERY]",
		Short: "List the readings",
		Long: paragraph(fmt.Sprintf("\n%s the named readings, or the readings on the next dates of the calendar.",
			keyword("List"))),
		Example: paragraph("leyn readings\nleyn readings noach\nleyn readings --upcoming 4"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			e, err := openEngine(cfg, false)
			if err != nil {
				return err
			}
			defer e.Close() //nolint:errcheck

			w := cmd.OutOrStdout()
			if upcoming > 0 {
				return listUpcoming(w, e.calendar, e.settings.Settings().Scheme(), now(), upcoming)
			}
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			listNames(w, e.calendar.Names(), query)
			return nil
		},
	}
)

// listNames prints reading names, best fuzzy matches first when a query is
// given.
func listNames(w io.Writer, names []string, query string) {
	if query != "" {
		matches := fuzzy.Find(query, names)
		names = make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Str)
		}
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
}

// listUpcoming prints the readings of the next n calendar dates from t.
func listUpcoming(w io.Writer, cal *calendar.Calendar, scheme leyning.Scheme, t time.Time, n int) error {
	today, _ := time.Parse(calendar.DateLayout, t.Format(calendar.DateLayout))
	for _, d := range cal.Dates() {
		if n == 0 {
			break
		}
		if d.Before(today) {
			continue
		}
		specs, err := cal.ReadingsOn(context.Background(), d, scheme)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			continue
		}

		names := make([]string, len(specs))
		for i, s := range specs {
			names[i] = s.Name
		}
		when := "today"
		if !d.Equal(today) {
			when = humanize.RelTime(d, today, "ago", "from now")
		}
		fmt.Fprintf(w, "%s  %-16s %s\n", d.Format("Mon Jan 2 2006"), "("+when+")", strings.Join(names, ", "))
		n--
	}
	return nil
}

func init() {
	readingsCmd.Flags().IntVarP(&upcoming, "upcoming", "u", 0, "list the readings of the next N dates")
}
