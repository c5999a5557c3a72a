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

var (
	expensesToday bool

	expenseDescription string
	expenseAmount      float64
	expenseCategory    string
	expenseDate        string
)

var expensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Track spending",
}

var expensesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses with totals per category",
	Long: `List expenses with totals per category.

Examples:
  hkchat expenses list
  hkchat expenses list --today`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd.Context(), func(_ *localstore.UserStore, user *entities.User) error {
			client, err := newBackend()
			if err != nil {
				return err
			}

			var expenses []entities.Expense
			if expensesToday {
				expenses, err = client.ListExpensesByDate(cmd.Context(), user.ID, today())
			} else {
				expenses, err = client.ListExpenses(cmd.Context(), user.ID)
			}
			if err != nil {
				return err
			}

			totals := entities.ExpenseTotals(expenses)
			if jsonOutput {
				return printJSON(map[string]any{"expenses": expenses, "totals": totals})
			}
			printExpenses(expenses, totals)
			return nil
		})
	},
}

var expensesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense",
	Long: `Record an expense. The date defaults to today.

Examples:
  hkchat expenses add --description "Dim sum" --amount 180 --category Food`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if expenseDescription == "" || expenseCategory == "" {
			return errors.New("--description and --category are required")
		}
		if expenseAmount <= 0 {
			return errors.New("--amount must be positive")
		}
		date := expenseDate
		if date == "" {
			date = today()
		}

		return withUser(cmd.Context(), func(_ *localstore.UserStore, user *entities.User) error {
			client, err := newBackend()
			if err != nil {
				return err
			}
			created, err := client.CreateExpense(cmd.Context(), entities.Expense{
				Description: expenseDescription,
				Amount:      expenseAmount,
				Category:    expenseCategory,
				Date:        date,
				UserID:      user.ID,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added expense %s\n", created.ID)
			return nil
		})
	},
}

var expensesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteWith(cmd.Context(), func(ctx context.Context) error {
			client, err := newBackend()
			if err != nil {
				return err
			}
			return client.DeleteExpense(ctx, args[0])
		}, "expense", args[0])
	},
}

func printExpenses(expenses []entities.Expense, totals map[string]float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, e := range expenses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", e.ID, e.Date, e.Category, e.Amount, e.Description)
	}
	w.Flush()

	categories := make([]string, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Println()
	var sum float64
	for _, c := range categories {
		fmt.Printf("%-12s %10.2f\n", c, totals[c])
		sum += totals[c]
	}
	fmt.Printf("%-12s %10.2f\n", "Total", sum)
}

// deleteWith requires a signed-in user, runs del and reports the result.
func deleteWith(ctx context.Context, del func(ctx context.Context) error, kind, id string) error {
	return withUser(ctx, func(_ *localstore.UserStore, _ *entities.User) error {
		if err := del(ctx); err != nil {
			return err
		}
		fmt.Printf("Deleted %s %s\n", kind, id)
		return nil
	})
}

func init() {
	expensesListCmd.Flags().BoolVar(&expensesToday, "today", false, "only today's expenses")

	expensesAddCmd.Flags().StringVar(&expenseDescription, "description", "", "what the money was spent on")
	expensesAddCmd.Flags().Float64Var(&expenseAmount, "amount", 0, "amount in HKD")
	expensesAddCmd.Flags().StringVar(&expenseCategory, "category", "", "expense category")
	expensesAddCmd.Flags().StringVar(&expenseDate, "date", "", "date as YYYY-MM-DD (default today)")

	expensesCmd.AddCommand(expensesListCmd, expensesAddCmd, expensesDeleteCmd)
}
