package session

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	"MetaMeal/internal/utility"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/hkdf"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "metameal_session"
	contextKey = "session"
	idKey      = "id"
)

// Manager binds the session cookie to the registry.
type Manager struct {
	store    sessions.Store
	registry *Registry
}

// NewManager builds a cookie store whose signing and encryption keys are both
// derived from secret.
func NewManager(secret []byte, secure bool, registry *Registry) *Manager {
	hashKey, blockKey := deriveKeys(secret)
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	// The cookie lives as long as the browser; the registry decides expiry.
	store.Options.MaxAge = 0

	return &Manager{store: store, registry: registry}
}

// Registry returns the backing registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Middleware resolves the caller's session and puts it on the echo context.
// New sessions get a fresh cookie.
func (m *Manager) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := utility.GetLogger(c)

		// A tampered or stale cookie decodes with an error; we just start over.
		cookie, err := m.store.Get(c.Request(), CookieName)
		if err != nil {
			logger.Debug().Err(err).Msg("Discarding undecodable session cookie")
		}

		id, _ := cookie.Values[idKey].(string)
		sess, created := m.registry.GetOrCreate(id)
		if created {
			cookie.Values[idKey] = sess.ID
			if err := cookie.Save(c.Request(), c.Response()); err != nil {
				logger.Error().Err(err).Msg("Failed to save session cookie")
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to start session"})
			}
			logger.Info().Str("session_id", sess.ID).Msg("Started new session")
		}

		c.Set(contextKey, sess)
		return next(c)
	}
}

func deriveKeys(secret []byte) (hashKey, blockKey []byte) {
	r := hkdf.New(sha256.New, secret, nil, []byte("metameal session cookie"))
	hashKey = make([]byte, 32)
	blockKey = make([]byte, 32)
	// An HKDF reader only fails past 255 blocks of output.
	_, _ = io.ReadFull(r, hashKey)
	_, _ = io.ReadFull(r, blockKey)
	return hashKey, blockKey
}

// FromContext safely retrieves the session from the Echo context.
func FromContext(c echo.Context) (*Session, error) {
	sess, ok := c.Get(contextKey).(*Session)
	if !ok || sess == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return sess, nil
}
