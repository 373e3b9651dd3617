package models

// Artifact is one submission: a catalogued work with its files, links and tags.
// Optional fields are pointers; nil means absent.
type Artifact struct {
	// Caller-supplied stable identifier. Not a database key.
	ID string `json:"id"`

	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Description *string `json:"description,omitempty"`

	FromYear int  `json:"from_year"`
	ToYear   *int `json:"to_year,omitempty"`

	Files       []ArtifactFile `json:"files"`
	Links       []ArtifactLink `json:"links"`
	People      []string       `json:"people"`
	Identities  []string       `json:"identities"`
	Decades     []int          `json:"decades"`
	Collections []string       `json:"collections"`
	Aliases     []string       `json:"aliases"`
}

// ArtifactFile belongs to exactly one artifact
type ArtifactFile struct {
	Name      string   `json:"name"`
	Filename  string   `json:"filename"`
	MediaType *string  `json:"media_type,omitempty"`
	Multihash string   `json:"multihash"`
	Lang      *string  `json:"lang,omitempty"`
	Hidden    bool     `json:"hidden"`
	Aliases   []string `json:"aliases"`
}

// ArtifactLink belongs to exactly one artifact
type ArtifactLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
