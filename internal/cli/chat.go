package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"chat-client/internal/chat"
	"chat-client/internal/models"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <room name or id>",
	Short: "Open a room and chat interactively",
	Args:  cobra.MinimumNArgs(1),
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

		room, err := resolveRoom(cmd, app, strings.Join(args, " "))
		if err != nil {
			return err
		}

		rs := chat.NewRoomSession(app.API, app.Store, user)
		defer rs.Close()

		rs.OnEvent = func(ev models.Event) {
			switch ev.Type {
			case models.EventTypeMessage:
				if ev.UserID != user.ID {
					fmt.Printf("%s: %s\n", ev.UserID, ev.Content)
				}
			case models.EventTypeTyping:
				if ev.State && ev.UserID != user.ID {
					fmt.Printf("(%s is typing...)\n", ev.UserID)
				}
			}
		}

		if err := rs.Open(cmd.Context(), room); err != nil {
			return err
		}

		for _, m := range rs.Timeline() {
			printMessage(rs, user.ID, m)
		}
		fmt.Printf("-- %s -- type a message, or /help\n", room.Name)

		// Make sure the channel is released on Ctrl-C too.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-quit
			rs.Close()
			app.Close()
			os.Exit(0)
		}()

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "/") {
				if done := runSlashCommand(cmd, rs, user.ID, line); done {
					return nil
				}
				continue
			}
			rs.SetTyping()
			if err := rs.Send(cmd.Context(), line); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		}
		return scanner.Err()
	},
}

func resolveRoom(cmd *cobra.Command, app *App, nameOrID string) (*models.Room, error) {
	rooms, err := app.API.ListRooms(cmd.Context())
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if rooms[i].ID == nameOrID || strings.EqualFold(rooms[i].Name, nameOrID) {
			return &rooms[i], nil
		}
	}
	return nil, fmt.Errorf("no room named %q; see 'chatc rooms'", nameOrID)
}

// runSlashCommand handles in-room commands; returns true when the session
// should end.
func runSlashCommand(cmd *cobra.Command, rs *chat.RoomSession, selfID, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q":
		return true

	case "/help":
		fmt.Println("/search <text>   search the room")
		fmt.Println("/react <n> <emoji>   react to the n-th listed message")
		fmt.Println("/unreact <n> <emoji> remove a reaction")
		fmt.Println("/who   list who is typing")
		fmt.Println("/quit  leave the room")

	case "/search":
		if len(fields) < 2 {
			fmt.Println("usage: /search <text>")
			break
		}
		results, err := rs.Search(cmd.Context(), strings.Join(fields[1:], " "))
		if err != nil {
			fmt.Printf("search failed: %v\n", err)
			break
		}
		for _, m := range results {
			printMessage(rs, selfID, m)
		}

	case "/react", "/unreact":
		if len(fields) != 3 {
			fmt.Printf("usage: %s <n> <emoji>\n", fields[0])
			break
		}
		idx, err := strconv.Atoi(fields[1])
		timeline := rs.Timeline()
		if err != nil || idx < 0 || idx >= len(timeline) {
			fmt.Println("no such message")
			break
		}
		action := models.ReactionAdd
		if fields[0] == "/unreact" {
			action = models.ReactionRemove
		}
		if err := rs.ToggleReaction(cmd.Context(), timeline[idx].ID, fields[2], action); err != nil {
			// rolled back already; keep the room usable
			fmt.Printf("reaction not delivered: %v\n", err)
		}

	case "/who":
		typing := rs.TypingUsers()
		if len(typing) == 0 {
			fmt.Println("nobody is typing")
		} else {
			fmt.Printf("typing: %s\n", strings.Join(typing, ", "))
		}

	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}

func printMessage(rs *chat.RoomSession, selfID string, m models.Message) {
	sender := m.UserID
	if m.UserID == selfID {
		sender = "me"
	}
	line := fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format("15:04"), sender, m.Content)
	if counts := rs.Reactions(m.ID); len(counts) > 0 {
		var parts []string
		for emoji, n := range counts {
			parts = append(parts, fmt.Sprintf("%s %d", emoji, n))
		}
		line += "  (" + strings.Join(parts, " ") + ")"
	}
	fmt.Println(line)
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
