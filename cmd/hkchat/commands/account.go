package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
)

var (
	loginEmail    string
	loginPassword string

	signupFirstName string
	signupLastName  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the travel backend",
	Long: `Sign in to the travel backend and remember the user locally.

A gateway session token is requested as well so that 'hkchat chat' works
without signing in again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" || loginPassword == "" {
			return errors.New("--email and --password are required")
		}
		ctx := cmd.Context()

		client, err := newBackend()
		if err != nil {
			return err
		}
		user, err := client.Login(ctx, loginEmail, loginPassword)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return errors.New("invalid email or password")
		}
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(ctx, user); err != nil {
			return err
		}

		session, err := gatewayLogin(ctx, loginEmail, loginPassword)
		if err != nil {
			fmt.Printf("Warning: gateway sign-in failed, chat is unavailable: %v\n", err)
		} else if err := store.SaveToken(ctx, session.Token, session.ExpiresAt); err != nil {
			return err
		}

		fmt.Printf("Logged in as %s\n", user.DisplayName())
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a travel backend account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" || loginPassword == "" || signupFirstName == "" {
			return errors.New("--email, --password and --first-name are required")
		}

		client, err := newBackend()
		if err != nil {
			return err
		}
		user, err := client.Signup(cmd.Context(), entities.User{
			FirstName: signupFirstName,
			LastName:  signupLastName,
			Email:     loginEmail,
			Password:  loginPassword,
		})
		if errors.Is(err, domain.ErrEmailInUse) {
			return fmt.Errorf("an account for %s already exists", loginEmail)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Account created for %s, run: hkchat login\n", user.DisplayName())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		if user == nil {
			return errNotLoggedIn
		}
		if jsonOutput {
			return printJSON(user)
		}
		fmt.Printf("%s <%s>\n", user.DisplayName(), user.Email)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, signupCmd} {
		cmd.Flags().StringVar(&loginEmail, "email", "", "account email")
		cmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	}
	signupCmd.Flags().StringVar(&signupFirstName, "first-name", "", "first name")
	signupCmd.Flags().StringVar(&signupLastName, "last-name", "", "last name")
}
