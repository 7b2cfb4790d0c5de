package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/duochat/duochat/internal/auth"
	"github.com/duochat/duochat/internal/store"
)

// Handlers bundles the API's dependencies. google is nil when federated
// sign-in is not configured; the endpoint then reports it as unavailable.
type Handlers struct {
	users    UserStore
	sessions SessionStore
	messages MessageStore
	issuer   TokenIssuer
	google   GoogleVerifier
	log      zerolog.Logger
}

// NewHandlers creates the API handler set.
func NewHandlers(users UserStore, sessions SessionStore, messages MessageStore, issuer TokenIssuer, google GoogleVerifier, logger zerolog.Logger) *Handlers {
	return &Handlers{
		users:    users,
		sessions: sessions,
		messages: messages,
		issuer:   issuer,
		google:   google,
		log:      logger,
	}
}

type userResponse struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Picture *string `json:"picture,omitempty"`
}

type senderResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Picture *string `json:"picture,omitempty"`
}

type messageResponse struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	SenderID  string         `json:"senderId"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
	Sender    senderResponse `json:"sender"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	UserA     string    `json:"userA"`
	UserB     string    `json:"userB"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *store.User) userResponse {
	return userResponse{
		ID:      u.ID.String(),
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.Picture,
	}
}

func toMessageResponse(m *store.Message) messageResponse {
	return messageResponse{
		ID:        m.ID.String(),
		SessionID: m.SessionID.String(),
		SenderID:  m.SenderID.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Sender: senderResponse{
			ID:      m.Sender.ID.String(),
			Name:    m.Sender.Name,
			Picture: m.Sender.Picture,
		},
	}
}

func toSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID.String(),
		UserA:     s.UserA.String(),
		UserB:     s.UserB.String(),
		CreatedAt: s.CreatedAt,
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Signup creates an account and returns the user with a bearer token.
func (h *Handlers) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, name and password are required"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("hashing password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := &store.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: &hashed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		h.log.Error().Err(err).Msg("creating user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := h.issuer.Issue(user.ID.String())
	if err != nil {
		h.log.Error().Err(err).Msg("issuing token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user), "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns the user with a bearer token.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("looking up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	if user == nil || user.PasswordHash == nil || !auth.CheckPassword(*user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.issuer.Issue(user.ID.String())
	if err != nil {
		h.log.Error().Err(err).Msg("issuing token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user), "token": token})
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// GoogleLogin verifies a Google ID token, creates or refreshes the account
// it identifies, and returns the user with a bearer token. Federated
// accounts are keyed by the token's email claim and carry no password.
func (h *Handlers) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID token is required"})
		return
	}

	if h.google == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google sign-in is not configured"})
		return
	}

	identity, err := h.google.Verify(c.Request.Context(), req.IDToken)
	if err != nil {
		h.log.Warn().Err(err).Msg("google token rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google token"})
		return
	}

	name := identity.Name
	if name == "" {
		name = strings.SplitN(identity.Email, "@", 2)[0]
	}
	var picture *string
	if identity.Picture != "" {
		picture = &identity.Picture
	}

	user, err := h.users.UpsertFederated(c.Request.Context(), identity.Email, name, picture)
	if err != nil {
		h.log.Error().Err(err).Msg("upserting federated user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	token, err := h.issuer.Issue(user.ID.String())
	if err != nil {
		h.log.Error().Err(err).Msg("issuing token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user), "token": token})
}

// ListUsers returns the user directory, excluding the caller.
func (h *Handlers) ListUsers(c *gin.Context) {
	caller, err := uuid.Parse(authedUser(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	users, err := h.users.List(c.Request.Context(), caller)
	if err != nil {
		h.log.Error().Err(err).Msg("listing users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type createSessionRequest struct {
	PeerID string `json:"peerId"`
}

// CreateSession gets or creates the chat session between the caller and the
// given peer.
func (h *Handlers) CreateSession(c *gin.Context) {
	caller, err := uuid.Parse(authedUser(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	peer, err := uuid.Parse(req.PeerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "peerId is required"})
		return
	}

	if _, err := h.users.GetByID(c.Request.Context(), peer); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.Error().Err(err).Msg("looking up peer")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	session, err := h.sessions.GetOrCreate(c.Request.Context(), caller, peer)
	if err != nil {
		h.log.Error().Err(err).Msg("creating session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session)})
}

// ListMessages returns a session's message history, oldest first, each row
// carrying the sender's profile fields.
func (h *Handlers) ListMessages(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}

	if _, err := h.sessions.GetByID(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.log.Error().Err(err).Msg("looking up session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	messages, err := h.messages.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("listing messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, toMessageResponse(&messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type createMessageRequest struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

// CreateMessage persists a message. Clients call this independently of the
// relay forward; this row is the durable record of the conversation.
func (h *Handlers) CreateMessage(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	senderID, err := uuid.Parse(req.SenderID)
	if err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "senderId and content are required"})
		return
	}

	if _, err := h.sessions.GetByID(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.log.Error().Err(err).Msg("looking up session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create message"})
		return
	}

	message, err := h.messages.Create(c.Request.Context(), sessionID, senderID, req.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.Error().Err(err).Msg("creating message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": toMessageResponse(message)})
}
