// Package page drives a server-rendered ticket page without a browser.
//
// A Page wraps the parsed HTML and exposes the behaviours the page scripts
// provide: reading the resolution-time inputs, writing the computed text,
// updating the status badge, prepending comments and filtering tables. All
// lookups tolerate missing elements; a feature that is not rendered is a
// no-op.
package page

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/spec-kit/ticket-desk/internal/resolution"
)

// Element ids and markers the rendered page provides.
const (
	ResolutionTargetID = "tiempo-resolucion"
	CommentFormID      = "comment-form"
	CommentsListID     = "comments-list"

	CreatedLabel = "Fecha de creación"
	UpdatedLabel = "Última actualización"
	StatusLabel  = "Estado Actual"

	// BadgeSelector is the class signature of the detail-page status badge.
	BadgeSelector  = "span.px-3.py-1.rounded-full.text-sm.font-semibold"
	StatusSelect   = `select[name="estado"]`
	DefaultConfirm = "¿Está seguro de realizar esta acción?"
)

// Page is a parsed ticket page.
type Page struct {
	doc *goquery.Document
	loc *time.Location
}

// Parse reads an HTML document. Rendered dates are read in loc.
func Parse(r io.Reader, loc *time.Location) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Page{doc: doc, loc: loc}, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(body []byte, loc *time.Location) (*Page, error) {
	return Parse(bytes.NewReader(body), loc)
}

// HTML serializes the current state of the document.
func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}

// Document exposes the underlying goquery document.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// Snapshot gathers the read model for the resolution-time calculation.
func (p *Page) Snapshot() resolution.Snapshot {
	status, _ := resolution.ResolveStatus(p.StatusSources()...)
	return resolution.Snapshot{
		Status:      status,
		CreatedText: p.labelledParagraph(CreatedLabel),
		UpdatedText: p.labelledParagraph(UpdatedLabel),
	}
}

// RefreshResolution recomputes the resolution time and writes it into the
// target element. It reports false, and changes nothing, when the page has
// no target element.
func (p *Page) RefreshResolution() (resolution.Result, bool) {
	target := p.doc.Find("#" + ResolutionTargetID).First()
	if target.Length() == 0 {
		return resolution.Result{}, false
	}
	res := resolution.Calculate(p.Snapshot(), p.loc)
	target.SetText(res.Text)
	return res, true
}

// ResolutionText returns what the target element currently shows.
func (p *Page) ResolutionText() (string, bool) {
	target := p.doc.Find("#" + ResolutionTargetID).First()
	if target.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(target.Text()), true
}

// labelledParagraph finds the label containing text and returns the trimmed
// text of the <p> right after it.
func (p *Page) labelledParagraph(text string) string {
	label := findLabel(p.doc.Selection, text)
	if label.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(label.NextFiltered("p").Text())
}

func findLabel(scope *goquery.Selection, text string) *goquery.Selection {
	return scope.Find("label").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), text)
	}).First()
}
