package page

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/resolution"
)

// BadgeStatus reads the status from the detail-page badge.
type BadgeStatus struct {
	Scope *goquery.Selection
}

// ResolveStatus implements resolution.StatusSource.
func (s BadgeStatus) ResolveStatus() (string, bool) {
	badge := s.Scope.Find(BadgeSelector).First()
	if badge.Length() == 0 {
		return "", false
	}
	return nonEmpty(badge.Text())
}

// LabelStatus reads the status from the span paired with the
// "Estado Actual" label.
type LabelStatus struct {
	Scope *goquery.Selection
}

// ResolveStatus implements resolution.StatusSource.
func (s LabelStatus) ResolveStatus() (string, bool) {
	label := findLabel(s.Scope, StatusLabel)
	if label.Length() == 0 {
		return "", false
	}
	span := label.NextFiltered("span")
	if span.Length() == 0 {
		span = label.Next().Find("span").First()
	}
	if span.Length() == 0 {
		span = label.Parent().ChildrenFiltered("span").First()
	}
	if span.Length() == 0 {
		return "", false
	}
	return nonEmpty(span.Text())
}

// SelectStatus reads the value of the "estado" select.
type SelectStatus struct {
	Scope *goquery.Selection
}

// ResolveStatus implements resolution.StatusSource.
func (s SelectStatus) ResolveStatus() (string, bool) {
	sel := s.Scope.Find(StatusSelect).First()
	if sel.Length() == 0 {
		return "", false
	}
	return nonEmpty(selectValue(sel))
}

// StatusSources returns the status lookups in priority order.
func (p *Page) StatusSources() []resolution.StatusSource {
	root := p.doc.Selection
	return []resolution.StatusSource{
		BadgeStatus{Scope: root},
		LabelStatus{Scope: root},
		SelectStatus{Scope: root},
	}
}

// StatusControl is a select that pushes status changes to the server.
type StatusControl struct {
	TicketID int64
	Value    string
}

// StatusControls lists the [data-status-update] selects on the page.
func (p *Page) StatusControls() []StatusControl {
	var out []StatusControl
	p.doc.Find("[data-status-update]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-ticket-id")
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return
		}
		out = append(out, StatusControl{TicketID: id, Value: selectValue(s)})
	})
	return out
}

// SelectStatusValue moves the selection of every status select for the
// ticket (and the page's "estado" select) to status.
func (p *Page) SelectStatusValue(ticketID int64, status string) {
	id := strconv.FormatInt(ticketID, 10)
	targets := p.doc.Find(`[data-status-update][data-ticket-id="` + id + `"]`).
		AddSelection(p.doc.Find(StatusSelect))
	targets.Each(func(_ int, sel *goquery.Selection) {
		setSelectValue(sel, status)
	})
}

// ApplyStatus updates the badge for ticketID with the new status text and
// colour classes. It reports whether a badge was found.
func (p *Page) ApplyStatus(ticketID int64, status string) bool {
	id := strconv.FormatInt(ticketID, 10)
	badge := p.doc.Find(`[data-status-badge="` + id + `"]`)
	if badge.Length() == 0 {
		return false
	}
	badge.SetText(status)
	for _, known := range domain.KnownStatuses {
		badge.RemoveClass(known.BadgeClass())
	}
	badge.RemoveClass(domain.TicketStatus("").BadgeClass())
	badge.AddClass(domain.TicketStatus(status).BadgeClass())
	return true
}

func selectValue(sel *goquery.Selection) string {
	opt := sel.Find("option[selected]").First()
	if opt.Length() == 0 {
		opt = sel.Find("option").First()
	}
	if opt.Length() == 0 {
		val, _ := sel.Attr("value")
		return val
	}
	if val, ok := opt.Attr("value"); ok {
		return val
	}
	return strings.TrimSpace(opt.Text())
}

func setSelectValue(sel *goquery.Selection, value string) {
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		optValue, ok := opt.Attr("value")
		if !ok {
			optValue = strings.TrimSpace(opt.Text())
		}
		if optValue == value {
			opt.SetAttr("selected", "selected")
		} else {
			opt.RemoveAttr("selected")
		}
	})
}

func nonEmpty(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, text != ""
}
