package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Document is an Inspector over static HTML, used to classify captured pages
// and by test doubles. Visibility is approximated from markup: the hidden
// attribute, inline display:none or visibility:hidden, Bootstrap's d-none,
// and hidden inputs, on the element or any ancestor.
type Document struct {
	doc *goquery.Document
}

func ParseDocument(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

func (d *Document) find(selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	return d.doc.FindMatcher(m), nil
}

func (d *Document) Probe(_ context.Context, selector string) Probe {
	sel, err := d.find(selector)
	if err != nil {
		return failedProbe(selector, err)
	}
	var visible []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if isVisible(s) {
			visible = append(visible, s.Text())
		}
	})
	return probeFromTexts(selector, sel.Length(), visible)
}

func (d *Document) Content(context.Context) (string, error) {
	return d.doc.Html()
}

// ValidationMessage emulates the browser's constraint validation for
// required fields and email inputs.
func (d *Document) ValidationMessage(_ context.Context, selector string) (string, error) {
	sel, err := d.find(selector)
	if err != nil {
		return "", err
	}
	el := sel.First()
	if el.Length() == 0 {
		return "", nil
	}

	value := el.AttrOr("value", "")
	if _, required := el.Attr("required"); required && value == "" {
		return "Please fill out this field.", nil
	}
	if strings.EqualFold(el.AttrOr("type", ""), "email") && value != "" && !strings.Contains(value, "@") {
		return fmt.Sprintf("Please include an '@' in the email address. '%s' is missing an '@'.", value), nil
	}
	return "", nil
}

// SetValue sets the value attribute of every element matching selector and
// reports how many matched.
func (d *Document) SetValue(selector, value string) (int, error) {
	sel, err := d.find(selector)
	if err != nil {
		return 0, err
	}
	sel.SetAttr("value", value)
	return sel.Length(), nil
}

// IsVisible reports whether any element matching t is visible.
func (d *Document) IsVisible(t Target) (bool, error) {
	sel, err := d.find(t.CSS)
	if err != nil {
		return false, err
	}
	found := false
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if (t.Text == "" || strings.Contains(s.Text(), t.Text)) && isVisible(s) {
			found = true
		}
		return !found
	})
	return found, nil
}

func isVisible(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		if isHidden(cur) {
			return false
		}
	}
	return true
}

func isHidden(s *goquery.Selection) bool {
	switch goquery.NodeName(s) {
	case "head", "script", "style", "template", "noscript":
		return true
	case "input":
		if strings.EqualFold(s.AttrOr("type", ""), "hidden") {
			return true
		}
	}
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if s.HasClass("d-none") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(s.AttrOr("style", ""), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
