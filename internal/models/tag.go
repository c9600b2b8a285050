package models

import (
	"fmt"
	"strings"
)

// TagCategory is one of the four fixed tag groups.
type TagCategory string

const (
	CategoryGenre         TagCategory = "genre"
	CategoryMood          TagCategory = "mood"
	CategoryInstrument    TagCategory = "instrument"
	CategoryMiscellaneous TagCategory = "miscellaneous"
)

// Categories lists every category in display and upload order.
var Categories = []TagCategory{CategoryGenre, CategoryMood, CategoryInstrument, CategoryMiscellaneous}

// ParseCategory accepts a category name in any case. "misc" is short for miscellaneous.
func ParseCategory(s string) (TagCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "misc" {
		return CategoryMiscellaneous, nil
	}
	for _, c := range Categories {
		if s == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown tag category %q", s)
}

func (c TagCategory) String() string { return string(c) }

// Tag is a label attached to every song of an album.
//
// RemoteID is set for tags loaded from the backend; Original keeps the remote name so a rename can be detected.
type Tag struct {
	RemoteID string      `json:"remote_id,omitempty"`
	Name     string      `json:"name"`
	Category TagCategory `json:"category"`
	Original string      `json:"original,omitempty"`
}

// Renamed reports whether a remote tag has been given a new name locally.
func (t Tag) Renamed() bool {
	return t.RemoteID != "" && t.Original != "" && t.Original != t.Name
}

// NormalizeTagName trims and lower-cases a tag name, collapsing inner whitespace.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
