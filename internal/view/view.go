// Package view turns request URLs into the typed page state used by the
// HTML pages: the selected browse tab, the report form prefill and the
// header navigation.
package view

import (
	"net/url"

	"github.com/erazemk/najdisce/internal/model"
)

// TypeParam is the query parameter that selects a status.
const TypeParam = "type"

// Browse is the state of the items page. A zero Status shows all items.
type Browse struct {
	Status model.Status
}

// ParseBrowse reads the selected tab from q. A missing or unknown type
// selects all items.
func ParseBrowse(q url.Values) Browse {
	return Browse{Status: parseStatus(q)}
}

// Filter returns the item filter of the selected tab.
func (b Browse) Filter() model.Filter {
	return model.Filter{Status: b.Status}
}

// Title is the page heading.
func (b Browse) Title() string {
	switch b.Status {
	case model.StatusLost:
		return "Lost Items"
	case model.StatusFound:
		return "Found Items"
	default:
		return "All Items"
	}
}

// Tab is one entry in the browse tab bar.
type Tab struct {
	Key    string
	Label  string
	Href   string
	Filter model.Filter
	Active bool
}

// Tabs returns the all, lost and found tabs with the selected one marked.
func (b Browse) Tabs() []Tab {
	tabs := []Tab{
		{Key: "all", Label: "All", Href: "/items"},
		{Key: "lost", Label: "Lost", Href: ItemsHref(model.StatusLost), Filter: model.Filter{Status: model.StatusLost}},
		{Key: "found", Label: "Found", Href: ItemsHref(model.StatusFound), Filter: model.Filter{Status: model.StatusFound}},
	}
	for i := range tabs {
		tabs[i].Active = tabs[i].Filter == b.Filter()
	}
	return tabs
}

// ItemsHref links to the items page filtered by status.
func ItemsHref(status model.Status) string {
	if status == "" {
		return "/items"
	}
	return "/items?" + url.Values{TypeParam: {string(status)}}.Encode()
}

// ParseReport returns the status the report form is pre-filled with, or
// the empty status when q names none.
func ParseReport(q url.Values) model.Status {
	return parseStatus(q)
}

// NavLink is one link in the page header.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// NavLinks returns the header navigation for a page at path with query q.
func NavLinks(path string, q url.Values) []NavLink {
	status := parseStatus(q)
	onItems := path == "/items"

	return []NavLink{
		{Label: "Lost Items", Href: ItemsHref(model.StatusLost), Active: onItems && status == model.StatusLost},
		{Label: "Found Items", Href: ItemsHref(model.StatusFound), Active: onItems && status == model.StatusFound},
		{Label: "Report Item", Href: "/report", Active: path == "/report"},
	}
}

func parseStatus(q url.Values) model.Status {
	s := model.Status(q.Get(TypeParam))
	if !s.Valid() {
		return ""
	}
	return s
}
