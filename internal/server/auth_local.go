package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type localUser struct {
	Username     string   `json:"username" yaml:"username"`
	PasswordHash string   `json:"passwordHash" yaml:"passwordHash"`
	Email        string   `json:"email,omitempty" yaml:"email,omitempty"`
	Roles        []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

type localUsers struct {
	mu   sync.RWMutex
	byU  map[string]localUser
	path string
}

func loadLocalUsers(path string) (*localUsers, error) {
	if path == "" {
		return &localUsers{byU: map[string]localUser{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wrap struct {
		Users []localUser `json:"users" yaml:"users"`
	}
	if yaml.Unmarshal(raw, &wrap) != nil && json.Unmarshal(raw, &wrap) != nil {
		return nil, errors.New("local users: failed to parse yaml/json")
	}
	idx := make(map[string]localUser, len(wrap.Users))
	for _, u := range wrap.Users {
		idx[u.Username] = u
	}
	return &localUsers{byU: idx, path: path}, nil
}

func (l *localUsers) verify(username, password string) (*localUser, error) {
	l.mu.RLock()
	u, ok := l.byU[username]
	l.mu.RUnlock()
	if !ok || u.PasswordHash == "" {
		return nil, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errors.New("invalid credentials")
	}
	return &u, nil
}

// handleLocalLogin - POST /auth/local/login
// @Summary Local login
// @Description Authenticate against the local users file and mint a session cookie
// @Tags authentication
// @Accept json
// @Produce json
// @Param credentials body object true "username and password"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/local/login [post]
func handleLocalLogin(cfg *ServerConfig, users *localUsers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid login body")
			return
		}

		u, err := users.verify(body.Username, body.Password)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = 60 * time.Minute
		}
		tok, err := makeSessionJWT(u.Username, u.Roles, "local", u.Email, []byte(cfg.JWTSecret), ttl)
		if err != nil {
			errJSON(w, err)
			return
		}
		setAuthCookie(w, r, cfg, tok, ttl)
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
