package models

// Decomposed is an Artifact split into the parent row and the collections that
// become child rows.
type Decomposed struct {
	ArtifactID string
	Row        ArtifactRow
	Files      []ArtifactFile
	Links      []ArtifactLink
	Aliases    []string
	Tags       map[TagKind][]string
}
