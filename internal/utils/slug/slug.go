package slug

import (
	"strings"
)

// Separator replaces each whitespace run in a title.
const Separator = "_"

// FromTitle derives a recipe slug: lowercase, whitespace runs collapsed into
// Separator. The same title always yields the same slug.
func FromTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), Separator)
}
