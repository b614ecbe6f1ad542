package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (b *Blog) APIPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := b.store.ListPosts(r.Context())
	if err != nil {
		log.Printf("listing posts: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (b *Blog) APIPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}
	b.respondPost(w, id, func() (*Post, error) {
		return b.store.GetPost(r.Context(), id)
	})
}

func (b *Blog) APIPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	b.respondPost(w, slug, func() (*Post, error) {
		return b.store.GetPostBySlug(r.Context(), slug)
	})
}

func (b *Blog) respondPost(w http.ResponseWriter, key any, get func() (*Post, error)) {
	post, err := get()
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		log.Printf("getting post %v: %v", key, err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

func (b *Blog) APIJournals(w http.ResponseWriter, r *http.Request) {
	journals, err := b.store.ListJournals(r.Context())
	if err != nil {
		log.Printf("listing journals: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, journals)
}

func (b *Blog) APIJournal(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Journal not found")
		return
	}

	journal, err := b.store.GetJournal(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "Journal not found")
		return
	}
	if err != nil {
		log.Printf("getting journal %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, journal)
}

func (b *Blog) APINotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "not found")
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
