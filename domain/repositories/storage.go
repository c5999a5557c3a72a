package repositories

import (
	"context"

	"github.com/hkguide/server/domain/entities"
)

// CurrentUserStore persists the signed-in user on the local device.
type CurrentUserStore interface {
	// Load returns nil and no error when nobody is signed in.
	Load(ctx context.Context) (*entities.User, error)
	Save(ctx context.Context, user *entities.User) error
	Clear(ctx context.Context) error
}

// TravelBackend is the CRUD surface of the travel backend.
type TravelBackend interface {
	Login(ctx context.Context, email, password string) (*entities.User, error)
	Signup(ctx context.Context, user entities.User) (*entities.User, error)

	CreateExpense(ctx context.Context, e entities.Expense) (*entities.Expense, error)
	ListExpenses(ctx context.Context, userID string) ([]entities.Expense, error)
	ListExpensesByDate(ctx context.Context, userID, date string) ([]entities.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	CreateItineraryItem(ctx context.Context, item entities.ItineraryItem) (*entities.ItineraryItem, error)
	ListItinerary(ctx context.Context, userID string) ([]entities.ItineraryItem, error)
	DeleteItineraryItem(ctx context.Context, id string) error

	SaveDestination(ctx context.Context, d entities.SavedDestination) (*entities.SavedDestination, error)
	ListSavedDestinations(ctx context.Context, userID string) ([]entities.SavedDestination, error)
	DeleteSavedDestination(ctx context.Context, id string) error
}
