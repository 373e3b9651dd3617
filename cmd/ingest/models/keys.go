package models

// Database primary keys. Not to be confused with Artifact.ID.
type (
	ArtifactKey int64
	FileKey     int64
	TagKey      int64
)

// KeyedFile is a file together with the key its row was assigned
type KeyedFile struct {
	ArtifactFile
	Key FileKey
}

// ArtifactRow holds the columns of the artifacts table
type ArtifactRow struct {
	Slug        string
	Title       string
	Summary     string
	Description *string
	FromYear    int
	ToYear      *int
}

// Receipt reports a committed submission
type Receipt struct {
	ArtifactID  string
	ArtifactKey ArtifactKey
	Version     int64
}
