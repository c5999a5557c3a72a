package entities

import "fmt"

// User is the account record returned by the travel backend.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
}

// DisplayName returns the first and last name joined.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// Expense is a single spending entry.
type Expense struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	UserID      string  `json:"userId"`
}

// ExpenseTotals sums amounts per category.
func ExpenseTotals(expenses []Expense) map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range expenses {
		totals[e.Category] += e.Amount
	}
	return totals
}

// ItineraryItem is one planned activity.
type ItineraryItem struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Category string `json:"category"`
	UserID   string `json:"userId"`
}

// SavedDestination is a destination the user bookmarked.
type SavedDestination struct {
	ID            string   `json:"id,omitempty"`
	DestinationID string   `json:"destinationId"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Image         string   `json:"image"`
	Category      string   `json:"category"`
	Budget        float64  `json:"budget"`
	Rating        float64  `json:"rating"`
	Tags          []string `json:"tags"`
	UserID        string   `json:"userId"`
}
