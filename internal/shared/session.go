package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
//
// Every session bound to an account is also indexed under the account id so
// that all of them can be dropped at once when the account goes away.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data.
type Session struct {
	ID           string
	values       map[string]string
	userID       string
	storedUserID string
	previousID   string
	flashes      []FlashMessage
	manager      *SessionManager
	isNew        bool
	dirty        bool
	destroyed    bool
}

type sessionPayload struct {
	Values  map[string]string `json:"values"`
	UserID  string            `json:"user_id"`
	Flashes []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager. The secret signs cookie values.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	id, ok := sm.verifyCookieValue(cookie.Value)
	if !ok {
		return sm.newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Unknown ids are never adopted.
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := sm.newSession()
	sess.ID = id
	sess.values = stored.Values
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	sess.userID = stored.UserID
	sess.storedUserID = stored.UserID
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.previousID != "" {
		if err := sm.forget(ctx, sess.previousID, sess.storedUserID); err != nil {
			return err
		}
		sess.previousID = ""
		sess.storedUserID = ""
	}

	if sess.destroyed {
		if err := sm.forget(ctx, sess.ID, sess.storedUserID); err != nil {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	// Anonymous requests that never touched the session leave no key behind.
	if sess.isNew && sess.empty() {
		return nil
	}

	if sess.ID == "" {
		sess.ID = sm.generateSessionID()
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		_, err = sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey(sess.ID), data, sm.ttl)
			if sess.storedUserID != "" && sess.storedUserID != sess.userID {
				pipe.SRem(ctx, userIndexKey(sess.storedUserID), sess.ID)
			}
			if sess.userID != "" {
				pipe.SAdd(ctx, userIndexKey(sess.userID), sess.ID)
				pipe.Expire(ctx, userIndexKey(sess.userID), sm.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		sess.storedUserID = sess.userID
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.signCookieValue(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// Regenerate issues a fresh id for the session, dropping the old one on commit.
// Call it whenever the privilege level of the session changes.
func (sm *SessionManager) Regenerate(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.isNew && sess.previousID == "" {
		sess.previousID = sess.ID
	}
	sess.ID = sm.generateSessionID()
	sess.isNew = true
	sess.dirty = true
}

// DestroyUserSessions deletes every stored session bound to the user id.
func (sm *SessionManager) DestroyUserSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	ids, err := sm.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	_, err = sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, sessionKey(id))
		}
		pipe.Del(ctx, userIndexKey(userID))
		return nil
	})
	return err
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// CookieValue returns the signed cookie value for a session id.
func (sm *SessionManager) CookieValue(id string) string {
	return sm.signCookieValue(id)
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a user ID. An empty id unbinds it.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// Destroyed reports whether the session is scheduled for deletion.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (s *Session) empty() bool {
	return len(s.values) == 0 && s.userID == "" && len(s.flashes) == 0
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:      sm.generateSessionID(),
		values:  make(map[string]string),
		manager: sm,
		isNew:   true,
		dirty:   true,
	}
}

func (sm *SessionManager) forget(ctx context.Context, id, userID string) error {
	_, err := sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		if userID != "" {
			pipe.SRem(ctx, userIndexKey(userID), id)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (sm *SessionManager) signCookieValue(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) verifyCookieValue(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" || sig == "" {
		return "", false
	}
	expected := sm.signCookieValue(id)
	if !hmac.Equal([]byte(expected), []byte(value)) {
		return "", false
	}
	return id, true
}

func sessionKey(id string) string {
	return "session:" + id
}

func userIndexKey(userID string) string {
	return "user_sessions:" + userID
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
