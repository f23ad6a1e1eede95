package cli

import (
	"fmt"

	"chat-client/internal/api"

	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List your rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if _, err := app.RequireUser(); err != nil {
			return err
		}
		rooms, err := app.API.ListRooms(cmd.Context())
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			fmt.Println("No rooms yet. Create one with 'chatc rooms create <name>'.")
			return nil
		}
		for _, room := range rooms {
			visibility := "public"
			if room.IsPrivate {
				visibility = "private"
			}
			fmt.Printf("%s  %s (%s)\n", room.ID, room.Name, visibility)
			if room.InviteCode != "" {
				fmt.Printf("    invite: %s\n", api.InviteLink(app.Config.Client.FrontendURL, room.InviteCode))
			}
		}
		return nil
	},
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if _, err := app.RequireUser(); err != nil {
			return err
		}
		private, _ := cmd.Flags().GetBool("private")
		room, err := app.API.CreateRoom(cmd.Context(), args[0], private)
		if err != nil {
			return err
		}
		fmt.Printf("Created room %q (id %s)\n", room.Name, room.ID)
		if room.InviteCode != "" {
			fmt.Printf("invite: %s\n", api.InviteLink(app.Config.Client.FrontendURL, room.InviteCode))
		}
		return nil
	},
}

var roomsJoinCmd = &cobra.Command{
	Use:   "join <invite-code>",
	Short: "Join a room by invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if _, err := app.RequireUser(); err != nil {
			return err
		}
		room, err := app.API.JoinByInvite(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("could not join: %w", err)
		}
		fmt.Printf("Joined room %q (id %s)\n", room.Name, room.ID)
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite <code>",
	Short: "Follow an invite link",
	Long: `Follow an invite deep link. With an active session the room is joined
immediately; otherwise the code is stored and consumed after the next login.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		code := args[0]
		if !app.Session.Authenticated() {
			if err := app.Session.SetPendingInvite(code); err != nil {
				return err
			}
			fmt.Println("Not logged in. The invite was saved and will be used after 'chatc login'.")
			return nil
		}
		room, err := app.API.JoinByInvite(cmd.Context(), code)
		if err != nil {
			return fmt.Errorf("could not join: %w", err)
		}
		fmt.Printf("Joined room %q (id %s)\n", room.Name, room.ID)
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:   "theme [name]",
	Short: "Show or set the persisted theme",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if len(args) == 0 {
			theme, err := app.Session.Theme()
			if err != nil {
				return err
			}
			if theme == "" {
				theme = "default"
			}
			fmt.Println(theme)
			return nil
		}
		return app.Session.SetTheme(args[0])
	},
}

func init() {
	roomsCreateCmd.Flags().Bool("private", false, "create a private room")
	roomsCmd.AddCommand(roomsCreateCmd, roomsJoinCmd)
	rootCmd.AddCommand(roomsCmd, inviteCmd, themeCmd)
}
