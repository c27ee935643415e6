package platform

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/client"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// apiKeyPrefix marks platform API keys so they are recognizable in logs and
// secret scanners without revealing the key material.
const apiKeyPrefix = "pk_"

// sessionStore holds bearer-token sessions in memory. Sessions do not
// survive a restart; API keys are the durable credential.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.UserID
}

var sessions = &sessionStore{sessions: map[string]models.UserID{}}

func (s *sessionStore) put(token string, userID models.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = userID
}

func (s *sessionStore) get(token string) (models.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	return id, ok
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// generateToken creates a 32-byte random token encoded as hex, 256 bits of
// entropy.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashKey returns the hex SHA-256 of API key material. Only the hash is
// stored; lookup recomputes it from the presented key.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// getTokenFromHeader extracts the bearer token from the Authorization
// header.
func getTokenFromHeader(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(auth, bearerPrefix) {
		return auth[len(bearerPrefix):]
	}
	return auth
}

// currentUser resolves the authenticated user from a session token or an
// API key. Returns nil without error for unauthenticated requests.
func (a *App) currentUser(r *http.Request) (*models.User, error) {
	token := getTokenFromHeader(r)
	if token == "" {
		return nil, nil
	}

	if userID, ok := sessions.get(token); ok {
		return a.store.GetUser(r.Context(), userID)
	}

	if strings.HasPrefix(token, apiKeyPrefix) {
		key, err := a.store.GetAPIKeyByHash(r.Context(), hashKey(token))
		if err != nil || key == nil {
			return nil, err
		}
		if !key.IsActive {
			return nil, nil
		}
		if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
			return nil, nil
		}
		if err := a.store.TouchAPIKey(r.Context(), key.ID, time.Now().UTC()); err != nil {
			// Best effort; an unavailable write path must not block
			// authentication in read-only mode.
			a.logger.Debug().Err(err).Msg("failed to update key last-used time")
		}
		return a.store.GetUser(r.Context(), key.UserID)
	}

	return nil, nil
}

// actorID returns the authenticated user's ID for audit attribution, or the
// zero ID for anonymous requests.
func (a *App) actorID(r *http.Request) models.UserID {
	user, err := a.currentUser(r)
	if err != nil || user == nil {
		return models.UserID{}
	}
	return user.ID
}

// handleSignUp registers a new account and opens a session. The password is
// stored as a bcrypt hash and never returned.
func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req client.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email, username, and password are required")
		return
	}

	existing, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := generateToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sessions.put(token, user.ID)

	a.audit(r.Context(), user.ID, "auth.signup", "user", user.ID.String(), nil)
	a.hub.Publish(Event{Type: "user.created", EntityID: user.ID.String()})
	respondJSON(w, http.StatusOK, client.AuthResponse{Token: token, User: user})
}

// handleSignIn authenticates by email and password.
func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req client.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Same error for unknown email and wrong password so the endpoint does
	// not leak which emails exist.
	if user == nil || !user.IsActive {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := generateToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sessions.put(token, user.ID)

	a.audit(r.Context(), user.ID, "auth.signin", "user", user.ID.String(), nil)
	respondJSON(w, http.StatusOK, client.AuthResponse{Token: token, User: user})
}

// handleSignOut ends the current session.
func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := getTokenFromHeader(r); token != "" {
		sessions.delete(token)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleGetCurrentUser returns the authenticated user.
func (a *App) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// handleRefreshToken rotates the session token.
func (a *App) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	oldToken := getTokenFromHeader(r)
	userID, ok := sessions.get(oldToken)
	if oldToken == "" || !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := a.store.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	newToken, err := generateToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sessions.delete(oldToken)
	sessions.put(newToken, userID)

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: newToken, User: user})
}

// handleCreateAPIKey issues a new API key for the authenticated user. The
// plaintext key is returned once; only its hash is stored.
func (a *App) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req client.CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	raw, err := generateToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	plaintext := apiKeyPrefix + raw

	key := &models.APIKey{
		KeyHash:   hashKey(plaintext),
		Name:      req.Name,
		UserID:    user.ID,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	if err := a.store.CreateAPIKey(r.Context(), key); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.audit(r.Context(), user.ID, "auth.key_create", "api_key", key.ID.String(), models.JSONMap{"name": key.Name})
	respondJSON(w, http.StatusCreated, client.CreateAPIKeyResponse{Key: plaintext, APIKey: key})
}

// handleListAPIKeys lists the authenticated user's keys.
func (a *App) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	keys, err := a.store.ListAPIKeys(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, keys)
}

// handleDeleteAPIKey revokes one of the authenticated user's keys.
func (a *App) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := models.ParseAPIKeyID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid key id")
		return
	}

	// Ownership check before revocation.
	keys, err := a.store.ListAPIKeys(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	owned := false
	for _, k := range keys {
		if k.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		respondError(w, http.StatusNotFound, "key not found")
		return
	}

	if err := a.store.DeleteAPIKey(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), user.ID, "auth.key_delete", "api_key", id.String(), nil)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
