package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var signupCmd = &cobra.Command{
	Use:   "signup <email> [display name]",
	Short: "Create an account",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		email := args[0]
		displayName := email
		if len(args) > 1 {
			displayName = strings.Join(args[1:], " ")
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		if err := app.API.Signup(cmd.Context(), email, password, displayName); err != nil {
			return err
		}
		fmt.Println("Signed up. Check your mail for the verification link, then run 'chatc verify <token>'.")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a freshly created account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.API.Verify(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Account verified. You can log in now.")
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and store the session locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		user, err := app.API.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", user.DisplayName, user.Email)

		// Consume an invite code stored while logged out.
		code, err := app.Session.TakePendingInvite()
		if err != nil || code == "" {
			return nil
		}
		room, err := app.API.JoinByInvite(cmd.Context(), code)
		if err != nil {
			fmt.Printf("Could not join invited room: %v\n", err)
			return nil
		}
		fmt.Printf("Joined room %q from your pending invite.\n", room.Name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.API.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		user, err := app.RequireUser()
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s> (id %s)\n", user.DisplayName, user.Email, user.ID)
		if exp, err := app.Session.ExpiresAt(); err == nil {
			fmt.Printf("access token expires %s\n", exp.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func init() {
	rootCmd.AddCommand(signupCmd, verifyCmd, loginCmd, logoutCmd, whoamiCmd)
}
