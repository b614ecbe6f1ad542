package main

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
)

// Double-submit tokens: the page carries the csrf cookie's value in a hidden
// field, and every state-changing request must send both back unchanged.
const (
	csrfCookieName = "csrf"
	csrfFieldName  = "csrf_token"
)

var (
	errCSRFMissing  = errors.New("csrf token missing")
	errCSRFMismatch = errors.New("csrf token mismatch")
)

// verifyCSRF rejects unsafe requests whose form token does not match the
// csrf cookie. Safe methods pass through untouched.
func (b *Blog) verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if err := checkCSRF(r); err != nil {
			log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkCSRF compares the posted token with the cookie in constant time.
// The form must already be parsed.
func checkCSRF(r *http.Request) error {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return errCSRFMissing
	}
	submitted := r.PostForm.Get(csrfFieldName)
	if submitted == "" {
		return errCSRFMissing
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
		return errCSRFMismatch
	}
	return nil
}

// csrfToken returns the token the browser already holds, or issues one.
func (b *Blog) csrfToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateToken()
	if err != nil {
		log.Printf("issuing csrf token: %v", err)
		return ""
	}
	// Readable by the page, never sent cross-site.
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Secure:   b.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(b.cfg.SessionTTL.Seconds()),
	})
	return token
}
