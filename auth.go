package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "session"

// Compared against when the submitted name is unknown, so a miss costs the
// same as a wrong password.
var dummyPasswordHash = mustHashPassword("not-the-password-of-anyone")

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func mustHashPassword(password string) string {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// authenticate returns the admin whose name and password both match, or
// ErrInvalidCredentials without saying which of the two was wrong.
func (s *Store) authenticate(ctx context.Context, name, password string) (*Admin, error) {
	admin, err := s.GetAdminByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		checkPassword(dummyPasswordHash, password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !checkPassword(admin.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

func (s *Store) createSession(ctx context.Context, adminID int64, ttl time.Duration) (*Session, error) {
	session := &Session{
		Token:     uuid.NewString(),
		AdminID:   adminID,
		ExpiresAt: time.Now().Add(ttl).Truncate(time.Second),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO sessions (token, admin_id, expires_at)
			VALUES (?, ?, ?)`), session.Token, session.AdminID, session.ExpiresAt.Unix())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	return session, nil
}

// getSession returns the unexpired session for token, or ErrNotFound.
func (s *Store) getSession(ctx context.Context, token string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT token, admin_id, expires_at
		FROM sessions
		WHERE token = ? AND expires_at > ?`), token, time.Now().Unix())

	var session Session
	var expiresAt int64
	err := row.Scan(&session.Token, &session.AdminID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	session.ExpiresAt = time.Unix(expiresAt, 0)

	return &session, nil
}

func (s *Store) extendSession(ctx context.Context, session *Session, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Truncate(time.Second)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(`UPDATE sessions SET expires_at = ? WHERE token = ?`), expiresAt.Unix(), session.Token)
		return err
	})
	if err != nil {
		return fmt.Errorf("extending session: %w", err)
	}
	session.ExpiresAt = expiresAt
	return nil
}

func (s *Store) deleteSession(ctx context.Context, token string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q("DELETE FROM sessions WHERE token = ?"), token)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *Store) cleanupExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.q("DELETE FROM sessions WHERE expires_at <= ?"), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cleaning up expired sessions: %w", err)
	}
	return nil
}

// Session cookies carry the server-side token as a signed JWT. The row in
// sessions stays authoritative for expiry and logout.

type sessionClaims struct {
	jwt.RegisteredClaims
}

func signSessionCookie(secret []byte, session *Session) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       session.Token,
			Subject:  strconv.FormatInt(session.AdminID, 10),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseSessionCookie(secret []byte, value string) (token string, adminID int64, err error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", 0, err
	}
	if !parsed.Valid || claims.ID == "" {
		return "", 0, errors.New("invalid session cookie")
	}

	adminID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid session subject: %w", err)
	}
	return claims.ID, adminID, nil
}

func (b *Blog) setSessionCookie(w http.ResponseWriter, session *Session) error {
	value, err := signSessionCookie(b.secret, session)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   b.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})
	return nil
}

func (b *Blog) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   b.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// SessionContext is the per-request view of who is logged in.
type SessionContext struct {
	Admin   *Admin
	Session *Session
}

func (sc *SessionContext) IsAuthenticated() bool {
	return sc != nil && sc.Admin != nil
}

type sessionContextKey struct{}

func withSessionContext(ctx context.Context, sc *SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sc)
}

// sessionFrom returns the request's session context, never nil.
func sessionFrom(r *http.Request) *SessionContext {
	if sc, ok := r.Context().Value(sessionContextKey{}).(*SessionContext); ok && sc != nil {
		return sc
	}
	return &SessionContext{}
}

// loadSession resolves the session cookie into a SessionContext for every
// request, sliding the expiry forward once half the lifetime has passed.
func (b *Blog) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := &SessionContext{}

		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			resumed, err := b.resumeSession(r.Context(), cookie.Value)
			switch {
			case err == nil:
				sc = resumed
				if time.Until(sc.Session.ExpiresAt) < b.cfg.SessionTTL/2 {
					if err := b.store.extendSession(r.Context(), sc.Session, b.cfg.SessionTTL); err != nil {
						log.Printf("extending session: %v", err)
					} else if err := b.setSessionCookie(w, sc.Session); err != nil {
						log.Printf("refreshing session cookie: %v", err)
					}
				}
			case errors.Is(err, ErrNotFound):
				b.clearSessionCookie(w)
			default:
				log.Printf("resuming session: %v", err)
				b.clearSessionCookie(w)
			}
		}

		next.ServeHTTP(w, r.WithContext(withSessionContext(r.Context(), sc)))
	})
}

func (b *Blog) resumeSession(ctx context.Context, cookieValue string) (*SessionContext, error) {
	token, adminID, err := parseSessionCookie(b.secret, cookieValue)
	if err != nil {
		return nil, ErrNotFound
	}

	session, err := b.store.getSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.AdminID != adminID {
		return nil, ErrNotFound
	}

	admin, err := b.store.GetAdminByID(ctx, session.AdminID)
	if err != nil {
		return nil, err
	}

	return &SessionContext{Admin: admin, Session: session}, nil
}

// requireAdmin is middleware that renders the forbidden page for requests
// without a logged-in admin.
func (b *Blog) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFrom(r).IsAuthenticated() {
			b.Forbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
