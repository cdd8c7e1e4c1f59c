package page

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var commentTmpl = template.Must(template.New("comment").Parse(`
<div class="comment-bubble fade-in">
    <div class="flex justify-between items-start mb-2">
        <div>
            <strong class="text-gray-800">{{.UserName}}</strong>
            <span class="text-gray-500 text-sm ml-2">{{.CreatedAt}}</span>
        </div>
    </div>
    <p class="text-gray-700">{{.Content}}</p>
</div>`))

// CommentView is the data shown for one comment bubble.
type CommentView struct {
	UserName  string
	CreatedAt string
	Content   string
}

// RenderComment renders a comment bubble with every field escaped.
func RenderComment(c CommentView) (string, error) {
	var buf bytes.Buffer
	if err := commentTmpl.Execute(&buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PrependComment inserts the bubble at the top of the comments list. It
// reports false when the page has no comments list.
func (p *Page) PrependComment(c CommentView) (bool, error) {
	list := p.doc.Find("#" + CommentsListID).First()
	if list.Length() == 0 {
		return false, nil
	}
	markup, err := RenderComment(c)
	if err != nil {
		return false, err
	}
	list.PrependHtml(markup)
	return true, nil
}

// CommentForm is the state of #comment-form.
type CommentForm struct {
	TicketID int64
	Content  string
	form     *goquery.Selection
}

// CommentForm returns the comment form, if rendered.
func (p *Page) CommentForm() (*CommentForm, bool) {
	form := p.doc.Find("#" + CommentFormID).First()
	if form.Length() == 0 {
		return nil, false
	}
	raw, _ := form.Find(`input[name="ticket_id"]`).First().Attr("value")
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, false
	}
	return &CommentForm{
		TicketID: id,
		Content:  form.Find(`textarea[name="content"]`).First().Text(),
		form:     form,
	}, true
}

// SetContent replaces the textarea contents.
func (f *CommentForm) SetContent(content string) {
	f.Content = content
	f.form.Find(`textarea[name="content"]`).First().SetText(content)
}
