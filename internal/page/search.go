package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const hiddenStyle = "display: none"

// SearchBinding ties a [data-search] input to the table it filters.
type SearchBinding struct {
	TableID string
	Value   string
}

// SearchBindings lists the search inputs on the page.
func (p *Page) SearchBindings() []SearchBinding {
	var out []SearchBinding
	p.doc.Find("[data-search]").Each(func(_ int, s *goquery.Selection) {
		tableID, _ := s.Attr("data-search")
		value, _ := s.Attr("value")
		out = append(out, SearchBinding{TableID: tableID, Value: value})
	})
	return out
}

// FilterTable hides the body rows of the table whose text does not contain
// term (case-insensitive) and shows the rest. It returns the visible rows'
// text and false when the table does not exist.
func (p *Page) FilterTable(tableID, term string) ([]string, bool) {
	table := p.doc.Find("#" + tableID).First()
	if table.Length() == 0 {
		return nil, false
	}
	term = strings.ToLower(term)
	visible := []string{}
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		text := row.Text()
		if strings.Contains(strings.ToLower(text), term) {
			row.RemoveAttr("style")
			visible = append(visible, strings.Join(strings.Fields(text), " "))
			return
		}
		row.SetAttr("style", hiddenStyle)
	})
	return visible, true
}

// Tooltips returns the data-tooltip texts on the page.
func (p *Page) Tooltips() []string {
	var out []string
	p.doc.Find("[data-tooltip]").Each(func(_ int, s *goquery.Selection) {
		text, _ := s.Attr("data-tooltip")
		out = append(out, text)
	})
	return out
}

// ConfirmPrompts returns the confirmation message of each [data-confirm]
// control, falling back to the generic question when the attribute is empty.
func (p *Page) ConfirmPrompts() []string {
	var out []string
	p.doc.Find("[data-confirm]").Each(func(_ int, s *goquery.Selection) {
		msg, _ := s.Attr("data-confirm")
		if strings.TrimSpace(msg) == "" {
			msg = DefaultConfirm
		}
		out = append(out, msg)
	})
	return out
}
