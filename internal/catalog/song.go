// Package catalog defines the domain types for the song catalog: songs,
// categories, contributor roles, and the key normalization rule shared by
// every index and cache built on top of them.
package catalog

// Role is a named category of contribution to a song. The set of roles is
// fixed at build time.
type Role string

const (
	RoleComposer   Role = "composer"
	RoleLyricist   Role = "lyricist"
	RoleTranslator Role = "translator"
)

// Roles lists every known contributor role in a stable order.
var Roles = []Role{RoleComposer, RoleLyricist, RoleTranslator}

// KnownRole reports whether r is one of the fixed contributor roles.
func KnownRole(r Role) bool {
	switch r {
	case RoleComposer, RoleLyricist, RoleTranslator:
		return true
	}
	return false
}

// Song is one immutable catalog entry. Songs are created once at load time
// and never mutated afterwards; the store owns them for the process
// lifetime.
type Song struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Performer   string   `json:"singer"`
	Composers   []string `json:"composers,omitempty"`
	Lyricists   []string `json:"lyricists,omitempty"`
	Translators []string `json:"translators,omitempty"`
	CategoryIDs []string `json:"categoryIds,omitempty"`

	Playback Playback `json:"playback,omitzero"`
	Lyrics   Lyrics   `json:"lyrics,omitzero"`

	// DateCreated and DateModified are internal bookkeeping timestamps
	// (milliseconds). They carry no domain meaning.
	DateCreated  int64 `json:"dateCreated,omitempty"`
	DateModified int64 `json:"dateModified,omitempty"`
}

// Playback holds external playback references.
type Playback struct {
	YouTubeVideoID string `json:"youTubeVideoId,omitempty"`
}

// Lyrics holds the external lyrics markup reference.
type Lyrics struct {
	MarkupURL     string `json:"markupUrl,omitempty"`
	MarkupVersion int    `json:"markupVersion,omitempty"`
}

// RoleNames returns the contributor list for the given role. The returned
// slice is the song's own; callers must not mutate it.
func (s *Song) RoleNames(r Role) []string {
	switch r {
	case RoleComposer:
		return s.Composers
	case RoleLyricist:
		return s.Lyricists
	case RoleTranslator:
		return s.Translators
	}
	return nil
}

// Category is a song grouping (language, theme, era).
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Meta carries catalog-level metadata from the source collection.
type Meta struct {
	Title   string `json:"title,omitempty"`
	Version string `json:"version,omitempty"`
}
