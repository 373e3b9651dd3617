package models

// TagKind names a tag dictionary namespace
type TagKind string

const (
	TagPerson     TagKind = "person"
	TagIdentity   TagKind = "identity"
	TagDecade     TagKind = "decade"
	TagCollection TagKind = "collection"
)

// TagKinds is the fixed order tags are resolved in
var TagKinds = []TagKind{TagPerson, TagIdentity, TagDecade, TagCollection}

// Tag is a (kind, name) dictionary entry shared across artifacts
type Tag struct {
	Kind TagKind
	Name string
}

// Flatten lists every (kind, name) pair in TagKinds order, keeping input order
// within each kind. Duplicates are kept.
func Flatten(tagsByKind map[TagKind][]string) []Tag {
	var tags []Tag
	for _, kind := range TagKinds {
		for _, name := range tagsByKind[kind] {
			tags = append(tags, Tag{Kind: kind, Name: name})
		}
	}
	return tags
}
