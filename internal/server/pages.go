package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixlink/internal/catalog"
	"github.com/desertthunder/mixlink/internal/shared"
	"github.com/desertthunder/mixlink/internal/tasks"
)

// DefaultFallbackURL receives unknown artists and unmatched paths.
const DefaultFallbackURL = "https://www.altamusic.co"

//go:embed templates/*.html
var templateFiles embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

type landingData struct {
	Title       string
	Refresh     int
	Name        string
	Description string
	Image       string
	Action      string
	Socials     []catalog.SocialLink
}

type messageData struct {
	Title   string
	Refresh int
	Heading string
	Message string
}

type pages struct {
	logger *log.Logger
}

func newPages(logger *log.Logger) *pages {
	return &pages{logger: logger}
}

func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		p.logger.Error("failed to render page", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *pages) landing(w http.ResponseWriter, artist string, tpl catalog.Template) {
	p.render(w, http.StatusOK, "landing.html", landingData{
		Title:       tpl.Name,
		Name:        tpl.Name,
		Description: tpl.Description,
		Image:       tpl.BackgroundImageURL,
		Action:      "/" + artist + "/playlist",
		Socials:     tpl.SocialLinks(),
	})
}

func (p *pages) message(w http.ResponseWriter, status int, heading, message string, refresh int) {
	p.render(w, status, "message.html", messageData{
		Title:   heading,
		Refresh: refresh,
		Heading: heading,
		Message: message,
	})
}

// respond turns a flow outcome into the browser's next step.
func (p *pages) respond(w http.ResponseWriter, r *http.Request, out tasks.Outcome) {
	switch out.Kind {
	case tasks.Redirect, tasks.Reauthorizing:
		http.Redirect(w, r, out.RedirectURL, http.StatusFound)
	case tasks.Duplicate:
		switch {
		case out.RedirectURL != "":
			http.Redirect(w, r, out.RedirectURL, http.StatusFound)
		case out.Message == tasks.MessageInProgress:
			p.message(w, http.StatusAccepted, "Almost there", out.Message, 2)
		default:
			p.message(w, http.StatusConflict, "Something went wrong", out.Message, 0)
		}
	default:
		p.message(w, statusFor(out.Err), "Something went wrong", out.Message, 0)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnknownArtist):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAuthFailed),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrMissingTransaction),
		errors.Is(err, shared.ErrStateMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
