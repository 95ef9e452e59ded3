// Package view renders the storefront HTML fragments for saved carts.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/utafrali/savedcarts/internal/domain"
)

// DateLayout formats the "Saved on" column, e.g. "Jan 02 2006".
const DateLayout = "Jan 02 2006"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the stylesheet assets served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer renders the save button, the saved carts table and notices.
type Renderer struct {
	site     string
	location *time.Location
	tmpl     *template.Template
}

// NewRenderer parses the embedded templates. site is prepended to every action
// link; dates are shown in loc.
func NewRenderer(site string, loc *time.Location) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{
		site:     strings.TrimRight(site, "/"),
		location: loc,
		tmpl:     tmpl,
	}, nil
}

type row struct {
	Key     int64
	SavedOn string
}

// SaveButton renders the link that saves the active cart.
func (r *Renderer) SaveButton() ([]byte, error) {
	return r.render("save_button", struct{ Site string }{r.site})
}

// SavedCartsTable renders one row per snapshot in the given order, or a single
// "No saved carts" row.
func (r *Renderer) SavedCartsTable(snapshots []domain.Snapshot) ([]byte, error) {
	rows := make([]row, len(snapshots))
	for i, s := range snapshots {
		rows[i] = row{Key: s.SavedAt, SavedOn: r.FormatDate(s.SavedAt)}
	}
	return r.render("saved_carts", struct {
		Site string
		Rows []row
	}{r.site, rows})
}

// Notices renders pending notices. Nothing is rendered when there are none.
func (r *Renderer) Notices(notices []string) ([]byte, error) {
	return r.render("notices", notices)
}

// FormatDate formats a snapshot key for display.
func (r *Renderer) FormatDate(savedAt int64) string {
	return time.Unix(savedAt, 0).In(r.location).Format(DateLayout)
}

func (r *Renderer) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
