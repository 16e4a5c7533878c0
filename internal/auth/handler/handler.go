package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"price-monitor/internal/auth"
	"price-monitor/internal/middleware"
	"price-monitor/internal/store"
	"price-monitor/internal/utils"
)

const minPasswordLen = 6

const errUsersExist = "users already exist, use /api/auth/register"

// Users is the user storage the auth endpoints need.
type Users interface {
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, u *store.User) error
	CreateFirstUser(ctx context.Context, u *store.User) error
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByID(ctx context.Context, id string) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	SetUserActive(ctx context.Context, id string, active bool) error
	TouchLastAccess(ctx context.Context, id string, at time.Time) error
}

type Handler struct {
	users  Users
	tokens *auth.Tokens
	logger zerolog.Logger
}

func New(users Users, tokens *auth.Tokens, logger zerolog.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, logger: logger}
}

func (h *Handler) reqLogger(r *http.Request) zerolog.Logger {
	return h.logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
}

type publicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"nombre"`
	Role  string `json:"rol"`
}

func toPublic(u store.User) publicUser {
	return publicUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"nombre"`
	Role     string `json:"rol"`
}

func (c *credentials) clean() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Name = strings.TrimSpace(c.Name)
	c.Role = strings.TrimSpace(c.Role)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := utils.DecodeJSON(r, v); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// createUser validates c and stores a new active user through insert. It
// writes the error response itself and reports whether the user was created.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request, c credentials, role auth.Role,
	insert func(context.Context, *store.User) error) (store.User, bool) {
	log := h.reqLogger(r)
	if len(c.Password) < minPasswordLen {
		utils.WriteError(w, http.StatusBadRequest, "password must have at least 6 characters")
		return store.User{}, false
	}
	hash, err := auth.HashPassword(c.Password)
	if err != nil {
		log.Error().Err(err).Msg("hash password")
		utils.WriteError(w, http.StatusInternalServerError, "could not create user")
		return store.User{}, false
	}
	u := store.User{Email: c.Email, PasswordHash: hash, Name: c.Name, Role: string(role), Active: true}
	if err := insert(r.Context(), &u); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			utils.WriteError(w, http.StatusConflict, "email already registered")
			return store.User{}, false
		case errors.Is(err, store.ErrUsersExist):
			utils.WriteError(w, http.StatusForbidden, errUsersExist)
			return store.User{}, false
		}
		log.Error().Err(err).Msg("create user")
		utils.WriteError(w, http.StatusInternalServerError, "could not create user")
		return store.User{}, false
	}
	log.Info().Str("user_id", u.ID).Str("role", u.Role).Msg("user created")
	return u, true
}

// Init serves POST /api/auth/init. It creates the first user as a developer
// and is refused once any user exists.
func (h *Handler) Init(w http.ResponseWriter, r *http.Request) {
	n, err := h.users.CountUsers(r.Context())
	if err != nil {
		log := h.reqLogger(r)
		log.Error().Err(err).Msg("count users")
		utils.WriteError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	if n > 0 {
		utils.WriteError(w, http.StatusForbidden, errUsersExist)
		return
	}

	var c credentials
	if !decode(w, r, &c) {
		return
	}
	c.clean()
	if c.Email == "" || c.Password == "" || c.Name == "" {
		utils.WriteError(w, http.StatusBadRequest, "email, password and nombre are required")
		return
	}
	// the count is a fast path; CreateFirstUser is what guarantees one winner
	u, ok := h.createUser(w, r, c, auth.RoleDeveloper, h.users.CreateFirstUser)
	if !ok {
		return
	}
	_ = utils.WriteJSON(w, http.StatusCreated, map[string]any{"user": toPublic(u)})
}

// Login serves POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r)

	var c credentials
	if !decode(w, r, &c) {
		return
	}
	c.clean()
	if c.Email == "" || c.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.users.UserByEmail(r.Context(), c.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.WriteError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("load user")
		utils.WriteError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	if err := auth.CheckPassword(c.Password, u.PasswordHash); err != nil {
		log.Warn().Str("email", c.Email).Msg("bad password")
		utils.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if !u.Active {
		utils.WriteError(w, http.StatusForbidden, "user is inactive")
		return
	}

	if err := h.users.TouchLastAccess(r.Context(), u.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("update last access")
	}
	token, err := h.tokens.Issue(u.ID, u.Email, auth.Role(u.Role))
	if err != nil {
		log.Error().Err(err).Msg("issue token")
		utils.WriteError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, map[string]any{"token": token, "user": toPublic(u)})
}

// Register serves POST /api/auth/register. Only a developer may create
// another developer.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Claims(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var c credentials
	if !decode(w, r, &c) {
		return
	}
	c.clean()
	if c.Email == "" || c.Password == "" || c.Name == "" || c.Role == "" {
		utils.WriteError(w, http.StatusBadRequest, "email, password, nombre and rol are required")
		return
	}
	role := auth.Role(c.Role)
	if !role.Valid() {
		utils.WriteError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if role == auth.RoleDeveloper && caller.Role != auth.RoleDeveloper {
		utils.WriteError(w, http.StatusForbidden, "only a developer can create developers")
		return
	}

	u, ok := h.createUser(w, r, c, role, h.users.CreateUser)
	if !ok {
		return
	}
	_ = utils.WriteJSON(w, http.StatusCreated, map[string]any{"user": toPublic(u)})
}

// Me serves GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.Claims(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	u, err := h.users.UserByID(r.Context(), caller.UserID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !u.Active) {
		utils.WriteError(w, http.StatusNotFound, "user not found or inactive")
		return
	}
	if err != nil {
		log := h.reqLogger(r)
		log.Error().Err(err).Msg("load user")
		utils.WriteError(w, http.StatusInternalServerError, "could not load user")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

// ListUsers serves GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		log := h.reqLogger(r)
		log.Error().Err(err).Msg("list users")
		utils.WriteError(w, http.StatusInternalServerError, "could not load users")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type updateUserRequest struct {
	UserID string `json:"userId"`
	Active *bool  `json:"activo"`
}

// UpdateUser serves PATCH /api/users, toggling a user's active flag.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r)
	caller, ok := middleware.Claims(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateUserRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Active == nil {
		utils.WriteError(w, http.StatusBadRequest, "userId and activo are required")
		return
	}

	target, err := h.users.UserByID(r.Context(), req.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		log.Error().Err(err).Msg("load user")
		utils.WriteError(w, http.StatusInternalServerError, "could not update user")
		return
	}
	if auth.Role(target.Role) == auth.RoleDeveloper && caller.Role != auth.RoleDeveloper {
		utils.WriteError(w, http.StatusForbidden, "only a developer can modify developers")
		return
	}

	if err := h.users.SetUserActive(r.Context(), req.UserID, *req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Error().Err(err).Msg("update user")
		utils.WriteError(w, http.StatusInternalServerError, "could not update user")
		return
	}
	log.Info().Str("user_id", req.UserID).Bool("active", *req.Active).Str("by", caller.UserID).Msg("user updated")
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "user updated"})
}
