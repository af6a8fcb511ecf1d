package server

import (
	"net/http"

	"github.com/desertthunder/mixlink/internal/tasks"
)

// ArtistHandler serves an artist's landing page and the create-playlist action.
type ArtistHandler struct {
	templates   tasks.TemplateResolver
	creator     PlaylistCreator
	pages       *pages
	fallbackURL string
}

// Routes returns the HTTP routes this handler serves.
func (h *ArtistHandler) Routes() []string {
	return []string{"GET /{artist}", "POST /{artist}/playlist"}
}

func (h *ArtistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	artist := r.PathValue("artist")

	if r.Method == http.MethodPost {
		out := h.creator.Create(r.Context(), SessionID(r.Context()), artist)
		h.pages.respond(w, r, out)
		return
	}

	tpl, ok := h.templates.Lookup(artist)
	if !ok {
		http.Redirect(w, r, h.fallbackURL, http.StatusFound)
		return
	}
	h.pages.landing(w, artist, tpl)
}

// CallbackHandler receives the provider's redirect after the listener approves or denies access.
type CallbackHandler struct {
	processor CallbackProcessor
	pages     *pages
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET /callback"}
}

// ServeHTTP reads the callback parameters from the query string and follows the flow's outcome.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := tasks.ParseCallback(r.URL.Query())
	out := h.processor.Handle(r.Context(), SessionID(r.Context()), params)
	h.pages.respond(w, r, out)
}
