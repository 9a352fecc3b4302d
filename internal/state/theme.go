package state

import "sync"

// ThemeKey holds the stored color scheme
const ThemeKey = "theme-preference"

// Theme is a color scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeStore persists the color scheme. Without a stored value the
// preference of the environment is used.
type ThemeStore struct {
	mu      sync.Mutex
	storage Storage
	theme   Theme
}

// NewThemeStore loads the stored theme, falling back to prefersDark
func NewThemeStore(storage Storage, prefersDark func() bool) *ThemeStore {
	s := &ThemeStore{storage: storage, theme: ThemeLight}
	if stored, ok := load[Theme](storage, ThemeKey); ok && (stored == ThemeLight || stored == ThemeDark) {
		s.theme = stored
	} else if prefersDark != nil && prefersDark() {
		s.theme = ThemeDark
	}
	return s
}

// Theme returns the current theme
func (s *ThemeStore) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// IsDark reports whether the dark theme is active
func (s *ThemeStore) IsDark() bool {
	return s.Theme() == ThemeDark
}

// Set stores theme
func (s *ThemeStore) Set(theme Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = theme
	save(s.storage, ThemeKey, theme)
}

// Toggle switches between light and dark and returns the new theme
func (s *ThemeStore) Toggle() Theme {
	next := ThemeDark
	if s.IsDark() {
		next = ThemeLight
	}
	s.Set(next)
	return next
}
