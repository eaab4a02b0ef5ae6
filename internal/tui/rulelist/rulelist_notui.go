//go:build notui

package rulelist

// Render displays trust rules as plain text (no interactivity in notui build).
func Render(entries []Entry, title string) error {
	return RenderPlain(entries, title)
}
