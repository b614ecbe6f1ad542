package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIPosts_Empty(t *testing.T) {
	blog := setupTestBlog(t)

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAPIPosts(t *testing.T) {
	blog := setupTestBlog(t)
	ctx := context.Background()
	require.NoError(t, blog.store.CreatePost(ctx, testPost("One", "one")))
	require.NoError(t, blog.store.CreatePost(ctx, testPost("Two", "two")))

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var posts []Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	assert.Len(t, posts, 2)
}

func TestAPIPost(t *testing.T) {
	blog := setupTestBlog(t)
	post := testPost("Round trip", "round-trip")
	require.NoError(t, blog.store.CreatePost(context.Background(), post))

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/posts/"+strconv.FormatInt(post.ID, 10), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, post.Title, got.Title)
	assert.Equal(t, post.Slug, got.Slug)
	assert.True(t, post.Date.Equal(got.Date))
}

func TestAPIPost_NotFound(t *testing.T) {
	blog := setupTestBlog(t)

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/posts/12345", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, w.Body.String())
}

func TestAPIPostBySlug(t *testing.T) {
	blog := setupTestBlog(t)
	require.NoError(t, blog.store.CreatePost(context.Background(), testPost("My post", "my-post")))

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/posts/slug/my-post", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "My post", got.Title)

	w = do(blog, httptest.NewRequest(http.MethodGet, "/api/posts/slug/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Post not found"}`, w.Body.String())
}

func TestAPIJournals(t *testing.T) {
	blog := setupTestBlog(t)

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/journals", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	journal := testJournal(9)
	require.NoError(t, blog.store.CreateJournal(context.Background(), journal))

	w = do(blog, httptest.NewRequest(http.MethodGet, "/api/journals", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var journals []Journal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &journals))
	require.Len(t, journals, 1)
	assert.Equal(t, journal.URL, journals[0].URL)
}

func TestAPIJournal(t *testing.T) {
	blog := setupTestBlog(t)
	journal := testJournal(4)
	require.NoError(t, blog.store.CreateJournal(context.Background(), journal))

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/journals/"+strconv.FormatInt(journal.ID, 10), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got Journal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, journal.Number, got.Number)
	assert.Equal(t, journal.Year, got.Year)

	w = do(blog, httptest.NewRequest(http.MethodGet, "/api/journals/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Journal not found"}`, w.Body.String())
}

func TestAPIJournal_NoImage(t *testing.T) {
	blog := setupTestBlog(t)
	journal := testJournal(6)
	journal.Image = ""
	require.NoError(t, blog.store.CreateJournal(context.Background(), journal))

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/journals/"+strconv.FormatInt(journal.ID, 10), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got, "image")
	assert.Nil(t, got["image"])
}

func TestAPI_UnknownRoute(t *testing.T) {
	blog := setupTestBlog(t)

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestAPI_WrongMethod(t *testing.T) {
	blog := setupTestBlog(t)

	for _, target := range []string{"/api/posts", "/api/journals/1"} {
		w := do(blog, httptest.NewRequest(http.MethodPost, target, nil))

		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.JSONEq(t, `{"error":"not found"}`, w.Body.String(), target)
	}
}

func TestAPI_StorageFailure(t *testing.T) {
	blog := setupTestBlog(t)
	require.NoError(t, blog.store.Close())

	w := do(blog, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
