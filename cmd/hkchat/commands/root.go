package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hkguide/server/adapters/backend"
	"github.com/hkguide/server/adapters/localstore"
	"github.com/hkguide/server/domain/entities"
)

var errNotLoggedIn = errors.New("not logged in, run: hkchat login")

var (
	backendURL string
	gatewayURL string
	dataDir    string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "hkchat",
	Short: "Hong Kong travel assistant client",
	Long: `Hong Kong travel assistant client.

Sign in to the travel backend, manage expenses, itinerary and saved
destinations, and chat with the assistant by text.

Examples:
  hkchat login --email mei@example.com --password secret
  hkchat expenses list --today
  hkchat saved list --category Food --rating 5
  hkchat chat`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", os.Getenv("BACKEND_BASE_URL"), "travel backend base URL")
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", envOr("HKCHAT_GATEWAY_URL", "http://localhost:8080"), "assistant gateway base URL")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", filepath.Join(home, ".hkchat"), "local data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON output")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(expensesCmd, itineraryCmd, savedCmd)
	rootCmd.AddCommand(voicesCmd, speakCmd, chatCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger() *zap.Logger {
	if verbose {
		if logger, err := zap.NewDevelopment(); err == nil {
			return logger
		}
	}
	return zap.NewNop()
}

func openStore() (*localstore.UserStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return localstore.Open(localstore.Options{Dir: dataDir}, newLogger())
}

func newBackend() (*backend.Client, error) {
	return backend.NewClient(backend.Config{BaseURL: backendURL}, newLogger())
}

// withUser opens the store, loads the signed-in user and runs fn.
func withUser(ctx context.Context, fn func(store *localstore.UserStore, user *entities.User) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return errNotLoggedIn
	}
	return fn(store, user)
}

func today() string {
	return time.Now().Format(time.DateOnly)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
