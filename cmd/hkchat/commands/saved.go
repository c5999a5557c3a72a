package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hkguide/server/adapters/localstore"
	"github.com/hkguide/server/domain/entities"
)

var savedFilter entities.DestinationFilter

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Saved destinations",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved destinations",
	Long: `List saved destinations, optionally filtered.

Filters combine. A budget of 1000 or more means any budget. Rating 1 matches
ratings below 2, rating 5 matches ratings above 4, anything else matches the
whole star.

Examples:
  hkchat saved list --category Food
  hkchat saved list --budget 300 --tag hiking --tag view
  hkchat saved list --rating 4 --search peak`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd.Context(), func(_ *localstore.UserStore, user *entities.User) error {
			client, err := newBackend()
			if err != nil {
				return err
			}
			saved, err := client.ListSavedDestinations(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			matches := savedFilter.Apply(saved)
			if jsonOutput {
				return printJSON(matches)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tBUDGET\tRATING\tTAGS")
			for _, d := range matches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.1f\t%s\n", d.ID, d.Name, d.Category, d.Budget, d.Rating, strings.Join(d.Tags, ", "))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d of %d saved destinations\n", len(matches), len(saved))
			return nil
		})
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a saved destination",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteWith(cmd.Context(), func(ctx context.Context) error {
			client, err := newBackend()
			if err != nil {
				return err
			}
			return client.DeleteSavedDestination(ctx, args[0])
		}, "saved destination", args[0])
	},
}

func init() {
	f := savedListCmd.Flags()
	f.StringVar(&savedFilter.Category, "category", entities.CategoryAll, "category, or All")
	f.Float64Var(&savedFilter.Budget, "budget", entities.AnyBudget, "maximum budget in HKD")
	f.IntVar(&savedFilter.Rating, "rating", 0, "rating bucket 1-5")
	f.StringSliceVar(&savedFilter.Tags, "tag", nil, "match any of these tags")
	f.StringVar(&savedFilter.Search, "search", "", "search destination names and descriptions")

	savedCmd.AddCommand(savedListCmd, savedDeleteCmd)
}
