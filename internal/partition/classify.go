package partition

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	bulletMarker = regexp.MustCompile(`^\s*[•▪◦‣*–—-]\s+`)
	numberMarker = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	columnGap    = regexp.MustCompile(`\S(\t| {2,})\S`)
	trailingStop = regexp.MustCompile(`[.!?:;,]$`)
)

// classifyBlock assigns a category to one text block using layout
// heuristics. Tables are recognized by repeated column gaps across
// lines, list items by leading markers, titles by short unpunctuated
// heading-like lines. Everything else is narrative text.
func classifyBlock(block string) Category {
	lines := nonEmptyLines(block)
	if len(lines) == 0 {
		return CategoryNarrativeText
	}

	if isTable(lines) {
		return CategoryTable
	}

	if bulletMarker.MatchString(lines[0]) {
		return CategoryListItem
	}

	// A numbered prefix marks either a section heading ("3. Results and
	// Discussion") or a list item ("1. Prepare the dataset"); the text
	// after the number decides.
	if m := numberMarker.FindString(lines[0]); m != "" {
		if len(lines) == 1 && isTitle(lines[0][len(m):]) {
			return CategoryTitle
		}
		return CategoryListItem
	}

	if len(lines) == 1 && isTitle(lines[0]) {
		return CategoryTitle
	}

	return CategoryNarrativeText
}

// isTable reports whether a block looks like tabular data: at least two
// lines, with a majority of them containing column gaps.
func isTable(lines []string) bool {
	if len(lines) < 2 {
		return false
	}

	gapped := 0
	for _, line := range lines {
		if columnGap.MatchString(line) {
			gapped++
		}
	}
	return gapped*2 >= len(lines)
}

// isTitle reports whether a single line looks like a heading.
func isTitle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 80 {
		return false
	}
	if trailingStop.MatchString(line) {
		return false
	}

	words := strings.Fields(line)
	if len(words) > 12 {
		return false
	}

	// Headings start with an uppercase letter or a digit (numbered sections).
	first := []rune(words[0])[0]
	if !unicode.IsUpper(first) && !unicode.IsDigit(first) {
		return false
	}

	// Mostly capitalized words, ignoring short connectives.
	capitalized := 0
	significant := 0
	for _, w := range words {
		r := []rune(w)[0]
		if !unicode.IsLetter(r) {
			continue
		}
		if len(w) <= 3 && unicode.IsLower(r) {
			continue // "of", "the", "and"
		}
		significant++
		if unicode.IsUpper(r) {
			capitalized++
		}
	}
	if significant == 0 {
		return false
	}
	return capitalized*3 >= significant*2
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
