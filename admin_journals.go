package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
)

func (b *Blog) renderJournalForm(w http.ResponseWriter, r *http.Request, status int, heading, action, submit string, form JournalForm, errs FieldErrors) {
	var flashes []Flash
	for _, msg := range errs.Messages() {
		flashes = append(flashes, flashError(msg))
	}

	b.render(w, r, status, "journal_form.html", map[string]any{
		"Heading": heading,
		"Action":  action,
		"Submit":  submit,
		"Form":    form,
		"Errors":  errs,
		"Flashes": flashes,
	})
}

func (b *Blog) CreateJournal(w http.ResponseWriter, r *http.Request) {
	const heading, action, submit = "New Journal", "/admin/journal/create", "Create journal"

	if r.Method == http.MethodGet {
		b.renderJournalForm(w, r, http.StatusOK, heading, action, submit, JournalForm{}, nil)
		return
	}

	form := decodeJournalForm(r)
	if errs := form.Validate(); errs != nil {
		b.renderJournalForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	}

	var journal Journal
	if err := form.apply(&journal); err != nil {
		errs := FieldErrors{}
		errs.Add("date", fieldMessageDate)
		b.renderJournalForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	}

	if err := b.store.CreateJournal(r.Context(), &journal); err != nil {
		log.Printf("creating journal: %v", err)
		b.setFlash(w, r, flashError("Error creating journal"))
		http.Redirect(w, r, action, http.StatusSeeOther)
		return
	}

	b.setFlash(w, r, flashSuccess("Journal created successfully"))
	http.Redirect(w, r, action, http.StatusSeeOther)
}

func (b *Blog) renderJournalList(w http.ResponseWriter, r *http.Request, mode, heading string) {
	page, err := b.store.PageJournals(r.Context(), pageParam(r))
	if err != nil {
		log.Printf("paging journals: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	b.render(w, r, http.StatusOK, "journal_list.html", map[string]any{
		"Heading": heading,
		"Mode":    mode,
		"Page":    page,
	})
}

func (b *Blog) EraseJournals(w http.ResponseWriter, r *http.Request) {
	b.renderJournalList(w, r, "erase", "Delete journals")
}

func (b *Blog) EditJournals(w http.ResponseWriter, r *http.Request) {
	b.renderJournalList(w, r, "edit", "Edit journals")
}

func (b *Blog) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		b.setFlash(w, r, flashError("Journal not found"))
		http.Redirect(w, r, "/admin/journal/erase", http.StatusSeeOther)
		return
	}

	err := b.store.DeleteJournal(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		b.setFlash(w, r, flashError("Journal not found"))
	case err != nil:
		log.Printf("deleting journal %d: %v", id, err)
		b.setFlash(w, r, flashError("Error deleting journal"))
	default:
		b.setFlash(w, r, flashSuccess("Journal deleted successfully"))
	}

	http.Redirect(w, r, "/admin/journal/erase", http.StatusSeeOther)
}

// ModJournal shows a journal prefilled in the edit form and saves submissions.
func (b *Blog) ModJournal(w http.ResponseWriter, r *http.Request) {
	const heading, submit = "Edit Journal", "Save journal"

	id, ok := idParam(r)
	if !ok {
		b.setFlash(w, r, flashError("Journal not found"))
		http.Redirect(w, r, "/admin/journal/edit", http.StatusSeeOther)
		return
	}
	action := "/admin/mod_journal/" + strconv.FormatInt(id, 10)

	journal, err := b.store.GetJournal(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		b.setFlash(w, r, flashError("Journal not found"))
		http.Redirect(w, r, "/admin/journal/edit", http.StatusSeeOther)
		return
	}
	if err != nil {
		log.Printf("getting journal %d: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if r.Method == http.MethodGet {
		b.renderJournalForm(w, r, http.StatusOK, heading, action, submit, newJournalForm(journal), nil)
		return
	}

	form := decodeJournalForm(r)
	if errs := form.Validate(); errs != nil {
		b.renderJournalForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	}

	if err := form.apply(journal); err != nil {
		errs := FieldErrors{}
		errs.Add("date", fieldMessageDate)
		b.renderJournalForm(w, r, http.StatusUnprocessableEntity, heading, action, submit, form, errs)
		return
	}

	err = b.store.UpdateJournal(r.Context(), journal)
	switch {
	case errors.Is(err, ErrNotFound):
		b.setFlash(w, r, flashError("Journal not found"))
	case err != nil:
		log.Printf("updating journal %d: %v", id, err)
		b.setFlash(w, r, flashError("Error updating journal"))
	default:
		b.setFlash(w, r, flashSuccess("Journal updated successfully"))
	}

	http.Redirect(w, r, "/admin/journal/edit", http.StatusSeeOther)
}
