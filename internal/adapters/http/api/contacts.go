package api

import (
	"context"
	"net/http"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
)

// ContactDependencies defines the interface for contact link operations.
type ContactDependencies interface {
	Contacts(ctx context.Context) ([]model.ContactLink, error)
	AddContact(ctx context.Context, c model.ContactLink) (model.ContactLink, error)
	UpdateContact(ctx context.Context, id string, c model.ContactLink) (model.ContactLink, error)
	DeleteContact(ctx context.Context, id string) error
}

// ContactsHandler handles /contacts requests.
type ContactsHandler struct {
	errorLog
	deps ContactDependencies
}

// NewContactsHandler creates a new contacts handler.
func NewContactsHandler(deps ContactDependencies) *ContactsHandler {
	return &ContactsHandler{deps: deps}
}

type contactsResponse struct {
	Contacts []model.ContactLink `json:"contacts"`
}

// HandleList handles GET /contacts.
func (h *ContactsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_contacts"
	list, err := h.deps.Contacts(r.Context())
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	if list == nil {
		list = []model.ContactLink{}
	}
	writeJSON(w, http.StatusOK, contactsResponse{Contacts: list})
}

// HandleAdd handles POST /contacts.
func (h *ContactsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_contact"
	var c model.ContactLink
	if err := decodeJSON(w, r, &c); err != nil {
		h.respondError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.AddContact(r.Context(), c)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /contacts/{id}.
func (h *ContactsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_contact"
	var c model.ContactLink
	if err := decodeJSON(w, r, &c); err != nil {
		h.respondError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	updated, err := h.deps.UpdateContact(r.Context(), r.PathValue("id"), c)
	if err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /contacts/{id}.
func (h *ContactsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_contact"
	if err := h.deps.DeleteContact(r.Context(), r.PathValue("id")); err != nil {
		h.respondError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
