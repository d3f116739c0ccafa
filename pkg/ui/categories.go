package ui

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"nekodl/pkg/provider"
)

// CheckCategories is the category value that lists categories instead of downloading
const CheckCategories = "check"

// PrintCategories writes one line per category in name order. Counts are
// shown only when the provider knows them.
func PrintCategories(w io.Writer, categories provider.Categories) {
	if len(categories) == 0 {
		fmt.Fprintln(w, textStyle.Render("- There are no categories available with this provider."))
		return
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		line := textStyle.Render("- " + TitleCase(name))
		if count := categories[name]; count >= 0 {
			line += ": " + countStyle.Render(fmt.Sprint(count))
		}
		fmt.Fprintln(w, line)
	}
}

// TitleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "neko_girl" becomes "Neko_Girl"
func TitleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// IsQuit reports whether a prompt answer asks to leave
func IsQuit(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

// PromptCategory asks for a category on w and reads one line from r
func PromptCategory(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, textStyle.Render("- Please enter the category you want to download (You can also type `check` to see all the available categories)")+": ")

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read category: %w", err)
	}
	return strings.TrimSpace(line), nil
}
