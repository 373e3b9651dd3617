package service

import (
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
)

// Decompose splits an artifact into its parent row and child collections.
//
// Identity and collection names are lowercased so tags never differ only by
// case. Person names keep their exact bytes: case is significant in a name.
// Nothing is validated here; malformed input passes through as-is.
func Decompose(artifact *models.Artifact) *models.Decomposed {
	return &models.Decomposed{
		ArtifactID: artifact.ID,
		Row: models.ArtifactRow{
			Slug:        artifact.Slug,
			Title:       artifact.Title,
			Summary:     artifact.Summary,
			Description: artifact.Description,
			FromYear:    artifact.FromYear,
			ToYear:      artifact.ToYear,
		},
		Files:   artifact.Files,
		Links:   artifact.Links,
		Aliases: artifact.Aliases,
		Tags: map[models.TagKind][]string{
			models.TagPerson:     artifact.People,
			models.TagIdentity:   lowerAll(artifact.Identities),
			models.TagDecade:     decadeNames(artifact.Decades),
			models.TagCollection: lowerAll(artifact.Collections),
		},
	}
}

func lowerAll(names []string) []string {
	if len(names) == 0 {
		return nil
	}

	// Casers keep state between calls, so each decomposition gets its own.
	lower := cases.Lower(language.Und)

	lowered := make([]string, len(names))
	for i, name := range names {
		lowered[i] = lower.String(name)
	}
	return lowered
}

func decadeNames(decades []int) []string {
	if len(decades) == 0 {
		return nil
	}

	names := make([]string, len(decades))
	for i, decade := range decades {
		names[i] = strconv.Itoa(decade)
	}
	return names
}
