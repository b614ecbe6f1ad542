package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
)

func (b *Blog) renderPostForm(w http.ResponseWriter, r *http.Request, status int, heading, action, submit string, form PostForm, errs FieldErrors) {
	var flashes []Flash
	for _, msg := range errs.Messages() {
		flashes = append(flashes, flashError(msg))
	}

	b.render(w, r, status, "post_form.html", map[string]any{
		"Heading": heading,
		"Action":  action,
		"Submit":  submit,
		"Form":    form,
		"Errors":  errs,
		"Flashes": flashes,
	})
}

// CreatePost shows and handles the new post form. On success it redirects
// back to the empty form so several posts can be entered in a row.
func (b *Blog) CreatePost(w http.ResponseWriter, r *http.Request) {
	const heading, action, submit = "New Post", "/admin/create", "Create post"

	if r.Method == http.MethodGet {
		b.renderPostForm(w, r, http.StatusOK, heading, action, submit, PostForm{}, nil)
		return
	}

	form := decodePostForm(r)
	if errs := form.Validate(); errs != nil {
		b.renderPostForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	}

	var post Post
	form.apply(&post)

	err := b.store.CreatePost(r.Context(), &post)
	if field, ok := conflictField(err, "slug"); ok {
		errs := FieldErrors{}
		errs.Add(field, "Already used by another post.")
		b.renderPostForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	}
	if err != nil {
		log.Printf("creating post: %v", err)
		b.setFlash(w, r, flashError("Error creating post"))
		http.Redirect(w, r, action, http.StatusSeeOther)
		return
	}

	b.setFlash(w, r, flashSuccess("Post created successfully"))
	http.Redirect(w, r, action, http.StatusSeeOther)
}

func (b *Blog) renderPostList(w http.ResponseWriter, r *http.Request, mode, heading string) {
	page, err := b.store.PagePosts(r.Context(), pageParam(r))
	if err != nil {
		log.Printf("paging posts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	b.render(w, r, http.StatusOK, "post_list.html", map[string]any{
		"Heading": heading,
		"Mode":    mode,
		"Page":    page,
	})
}

func (b *Blog) ErasePosts(w http.ResponseWriter, r *http.Request) {
	b.renderPostList(w, r, "erase", "Delete posts")
}

func (b *Blog) EditPosts(w http.ResponseWriter, r *http.Request) {
	b.renderPostList(w, r, "edit", "Edit posts")
}

func (b *Blog) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		b.setFlash(w, r, flashError("Post not found"))
		http.Redirect(w, r, "/admin/erase", http.StatusSeeOther)
		return
	}

	err := b.store.DeletePost(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		b.setFlash(w, r, flashError("Post not found"))
	case err != nil:
		log.Printf("deleting post %d: %v", id, err)
		b.setFlash(w, r, flashError("Error deleting post"))
	default:
		b.setFlash(w, r, flashSuccess("Post deleted successfully"))
	}

	http.Redirect(w, r, "/admin/erase", http.StatusSeeOther)
}

// ModPost shows a post prefilled in the edit form and saves submissions.
func (b *Blog) ModPost(w http.ResponseWriter, r *http.Request) {
	const heading, submit = "Edit Post", "Save post"

	id, ok := idParam(r)
	if !ok {
		b.setFlash(w, r, flashError("Post not found"))
		http.Redirect(w, r, "/admin/edit", http.StatusSeeOther)
		return
	}
	action := "/admin/mod_post/" + strconv.FormatInt(id, 10)

	post, err := b.store.GetPost(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		b.setFlash(w, r, flashError("Post not found"))
		http.Redirect(w, r, "/admin/edit", http.StatusSeeOther)
		return
	}
	if err != nil {
		log.Printf("getting post %d: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if r.Method == http.MethodGet {
		b.renderPostForm(w, r, http.StatusOK, heading, action, submit, newPostForm(post), nil)
		return
	}

	form := decodePostForm(r)
	if errs := form.Validate(); errs != nil {
		b.renderPostForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	}

	form.apply(post)
	err = b.store.UpdatePost(r.Context(), post)
	field, conflict := conflictField(err, "slug")
	switch {
	case conflict:
		errs := FieldErrors{}
		errs.Add(field, "Already used by another post.")
		b.renderPostForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	case errors.Is(err, ErrNotFound):
		b.setFlash(w, r, flashError("Post not found"))
	case err != nil:
		log.Printf("updating post %d: %v", id, err)
		b.setFlash(w, r, flashError("Error updating post"))
	default:
		b.setFlash(w, r, flashSuccess("Post updated successfully"))
	}

	http.Redirect(w, r, "/admin/edit", http.StatusSeeOther)
}
