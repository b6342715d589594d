// Package partition segments PDF documents into typed content elements.
package partition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Category is the element type assigned during partitioning.
type Category string

const (
	CategoryTitle         Category = "Title"
	CategoryNarrativeText Category = "NarrativeText"
	CategoryListItem      Category = "ListItem"
	CategoryTable         Category = "Table"
)

// TextCategories are the categories whose text contributes to the
// combined document string, in document reading order.
var TextCategories = map[Category]bool{
	CategoryTitle:         true,
	CategoryNarrativeText: true,
	CategoryListItem:      true,
	CategoryTable:         true,
}

// Metadata carries per-element provenance.
type Metadata struct {
	TextAsHTML string `json:"text_as_html,omitempty"`
	Filetype   string `json:"filetype,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// Element is one typed content block produced by partitioning.
type Element struct {
	Category  Category `json:"type"`
	ElementID string   `json:"element_id"`
	Text      string   `json:"text"`
	Metadata  Metadata `json:"metadata"`
}

// elementID derives a stable identifier from element provenance so
// re-partitioning an unchanged document yields identical IDs.
func elementID(filename string, page, index int, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d:%s", filename, page, index, text)))
	return hex.EncodeToString(sum[:])[:32]
}
