package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"chat-client/internal/models"
)

// Signup registers a new account; the backend sends a verification mail.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) error {
	req := models.SignupRequest{Email: email, Password: password, DisplayName: displayName}
	return c.do(ctx, http.MethodPost, "/auth/signup", nil, req, nil)
}

func (c *Client) Verify(ctx context.Context, token string) error {
	q := url.Values{"token": {token}}
	return c.do(ctx, http.MethodGet, "/auth/verify", q, nil, nil)
}

// Login exchanges credentials for a token pair, stores it, and fetches the
// profile so the session is fully populated.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var pair models.TokenPair
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &pair); err != nil {
		return nil, err
	}
	if err := c.session.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		return nil, err
	}

	user, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.session.SetUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout tells the backend best-effort and always clears the local session.
func (c *Client) Logout(ctx context.Context) error {
	// best-effort; the local session is cleared regardless
	_ = c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	return c.session.Clear()
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, name string, isPrivate bool) (*models.Room, error) {
	var room models.Room
	req := models.CreateRoomRequest{Name: name, IsPrivate: isPrivate}
	if err := c.do(ctx, http.MethodPost, "/rooms", nil, req, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) JoinByInvite(ctx context.Context, inviteCode string) (*models.Room, error) {
	var room models.Room
	q := url.Values{"invite_code": {inviteCode}}
	if err := c.do(ctx, http.MethodPost, "/rooms/join", q, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var messages []models.Message
	q := url.Values{"room_id": {roomID}}
	if err := c.do(ctx, http.MethodGet, "/messages", q, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) PostMessage(ctx context.Context, roomID, content string, parentID *string, mentions []string) (*models.Message, error) {
	var msg models.Message
	req := models.PostMessageRequest{RoomID: roomID, Content: content, ParentID: parentID, Mentions: mentions}
	if err := c.do(ctx, http.MethodPost, "/messages", nil, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) SearchMessages(ctx context.Context, roomID, query string) ([]models.Message, error) {
	var messages []models.Message
	q := url.Values{"room_id": {roomID}, "q": {query}}
	if err := c.do(ctx, http.MethodGet, "/search/messages", q, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) error {
	req := models.ReactionRequest{MessageID: messageID, Emoji: emoji}
	return c.do(ctx, http.MethodPost, "/reactions/add", nil, req, nil)
}

func (c *Client) RemoveReaction(ctx context.Context, messageID, emoji string) error {
	req := models.ReactionRequest{MessageID: messageID, Emoji: emoji}
	return c.do(ctx, http.MethodPost, "/reactions/remove", nil, req, nil)
}

func (c *Client) MarkDelivered(ctx context.Context, messageIDs []string) error {
	return c.do(ctx, http.MethodPost, "/receipts/delivered", nil, models.ReceiptRequest{MessageIDs: messageIDs}, nil)
}

func (c *Client) MarkRead(ctx context.Context, messageIDs []string) error {
	return c.do(ctx, http.MethodPost, "/receipts/read", nil, models.ReceiptRequest{MessageIDs: messageIDs}, nil)
}

// WebsocketURL builds the streaming endpoint for a room/user pair, using the
// secure scheme when the REST origin is secure.
func (c *Client) WebsocketURL(roomID, userID string) (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := url.Values{}
	q.Set("room_id", roomID)
	q.Set("user_id", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// InviteLink renders the shareable deep link for an invite code.
func InviteLink(frontendURL, code string) string {
	return fmt.Sprintf("%s/invite/%s", frontendURL, url.PathEscape(code))
}
