package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hkguide/server/adapters/localstore"
	"github.com/hkguide/server/domain/entities"
)

var itineraryItem entities.ItineraryItem

var itineraryCmd = &cobra.Command{
	Use:   "itinerary",
	Short: "Plan activities",
}

var itineraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List planned activities by date and time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd.Context(), func(_ *localstore.UserStore, user *entities.User) error {
			client, err := newBackend()
			if err != nil {
				return err
			}
			items, err := client.ListItinerary(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			sort.SliceStable(items, func(i, j int) bool {
				if items[i].Date != items[j].Date {
					return items[i].Date < items[j].Date
				}
				return items[i].Time < items[j].Time
			})

			if jsonOutput {
				return printJSON(items)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTIME\tTITLE\tLOCATION\tCATEGORY")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", it.ID, it.Date, it.Time, it.Title, it.Location, it.Category)
			}
			return w.Flush()
		})
	},
}

var itineraryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an activity",
	Long: `Add an activity. The date defaults to today.

Examples:
  hkchat itinerary add --title "Peak Tram" --time 09:00 --location "Garden Road" --category Sightseeing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if itineraryItem.Title == "" {
			return errors.New("--title is required")
		}
		item := itineraryItem
		if item.Date == "" {
			item.Date = today()
		}

		return withUser(cmd.Context(), func(_ *localstore.UserStore, user *entities.User) error {
			client, err := newBackend()
			if err != nil {
				return err
			}
			item.UserID = user.ID
			created, err := client.CreateItineraryItem(cmd.Context(), item)
			if err != nil {
				return err
			}
			fmt.Printf("Added %q on %s\n", created.Title, created.Date)
			return nil
		})
	},
}

var itineraryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteWith(cmd.Context(), func(ctx context.Context) error {
			client, err := newBackend()
			if err != nil {
				return err
			}
			return client.DeleteItineraryItem(ctx, args[0])
		}, "activity", args[0])
	},
}

func init() {
	f := itineraryAddCmd.Flags()
	f.StringVar(&itineraryItem.Title, "title", "", "activity title")
	f.StringVar(&itineraryItem.Date, "date", "", "date as YYYY-MM-DD (default today)")
	f.StringVar(&itineraryItem.Time, "time", "", "time as HH:MM")
	f.StringVar(&itineraryItem.Location, "location", "", "where it happens")
	f.StringVar(&itineraryItem.Category, "category", "", "activity category")

	itineraryCmd.AddCommand(itineraryListCmd, itineraryAddCmd, itineraryDeleteCmd)
}
