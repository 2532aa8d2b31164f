package api

import "fmt"

// Strategy is the way a Locator finds elements.
type Strategy string

// Locator strategies.
const (
	ByCSS     Strategy = "css selector"
	ByID      Strategy = "id"
	ByName    Strategy = "name"
	ByTagName Strategy = "tag name"
	ByXPath   Strategy = "xpath"
)

// Locator describes how to find elements in the active window.
type Locator struct {
	Strategy Strategy
	Value    string
}

// CSS returns a locator for a CSS selector.
func CSS(selector string) Locator { return Locator{ByCSS, selector} }

// ID returns a locator matching the id attribute.
func ID(id string) Locator { return Locator{ByID, id} }

// Name returns a locator matching the name attribute.
func Name(name string) Locator { return Locator{ByName, name} }

// TagName returns a locator matching the element tag.
func TagName(tag string) Locator { return Locator{ByTagName, tag} }

// XPath returns a locator for an XPath expression.
func XPath(expr string) Locator { return Locator{ByXPath, expr} }

func (l Locator) String() string {
	return fmt.Sprintf("By.%s: %s", l.Strategy, l.Value)
}

// Selector converts the locator into an equivalent CSS selector. XPath
// locators have no CSS form and report false.
func (l Locator) Selector() (string, bool) {
	switch l.Strategy {
	case ByCSS, ByTagName:
		return l.Value, true
	case ByID:
		return fmt.Sprintf("[id=%q]", l.Value), true
	case ByName:
		return fmt.Sprintf("[name=%q]", l.Value), true
	}
	return "", false
}
