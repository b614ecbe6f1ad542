package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyCSRF(t *testing.T) {
	blog := setupTestBlog(t)

	tests := []struct {
		name   string
		method string
		cookie string
		field  string
		status int
	}{
		{"get passes", http.MethodGet, "", "", http.StatusOK},
		{"matching token", http.MethodPost, testCSRFToken, testCSRFToken, http.StatusOK},
		{"no cookie", http.MethodPost, "", testCSRFToken, http.StatusForbidden},
		{"no field", http.MethodPost, testCSRFToken, "", http.StatusForbidden},
		{"mismatch", http.MethodPost, testCSRFToken, "something-else", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			form := url.Values{}
			if tt.field != "" {
				form.Set(csrfFieldName, tt.field)
			}
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			blog.verifyCSRF(next).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status == http.StatusOK, called)
		})
	}
}

func TestCheckCSRF_QueryStringIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/?"+csrfFieldName+"="+testCSRFToken, nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRFToken})
	require.NoError(t, req.ParseForm())

	assert.ErrorIs(t, checkCSRF(req), errCSRFMissing)
}

func TestCSRFToken(t *testing.T) {
	blog := setupTestBlog(t)

	w := httptest.NewRecorder()
	token := blog.csrfToken(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, token)

	issued := responseCookie(w, csrfCookieName)
	require.NotNil(t, issued)
	assert.Equal(t, token, issued.Value)
	assert.False(t, issued.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, issued.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	w = httptest.NewRecorder()
	assert.Equal(t, token, blog.csrfToken(w, req))
	assert.Nil(t, responseCookie(w, csrfCookieName))
}
