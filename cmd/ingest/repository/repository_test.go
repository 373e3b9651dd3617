package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
	"github.com/lyzr/catalog-ingest/common/store"
	"github.com/lyzr/catalog-ingest/common/store/storetest"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func sampleDecomposed() *models.Decomposed {
	return &models.Decomposed{
		ArtifactID: "artifact-a",
		Row: models.ArtifactRow{
			Slug:     "the-slug",
			Title:    "Title",
			Summary:  "Summary",
			FromYear: 1969,
			ToYear:   intPtr(1972),
		},
		Files: []models.ArtifactFile{
			{
				Name:      "Cover",
				Filename:  "cover.jpg",
				MediaType: strPtr("image/jpeg"),
				Multihash: "mh1",
				Aliases:   []string{"front.jpg"},
			},
			{
				Name:      "Notes",
				Filename:  "notes.txt",
				Multihash: "mh2",
				Lang:      strPtr("en"),
				Hidden:    true,
			},
		},
		Links:   []models.ArtifactLink{{Name: "Home", URL: "https://example.com"}},
		Aliases: []string{"old-slug"},
		Tags: map[models.TagKind][]string{
			models.TagPerson:     {"Ada Lovelace"},
			models.TagIdentity:   {"poet"},
			models.TagDecade:     {"1960", "1970"},
			models.TagCollection: {"archive", "archive"},
		},
	}
}

func TestTagRepository_Resolve(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewTagRepository(fake)

	keys, err := repo.Resolve(context.Background(), map[models.TagKind][]string{
		models.TagPerson:     {"Ada", "ada"},
		models.TagCollection: {"archive", "archive"},
		models.TagDecade:     {"1960"},
	})
	require.NoError(t, err)

	// Batch order: collection archive, decade 1960, person Ada, person ada.
	// Keys follow input order: person Ada, person ada, decade 1960, collection archive (twice).
	assert.Equal(t, []models.TagKey{3, 4, 2, 1, 1}, keys)

	calls := fake.Calls()
	require.Len(t, calls, 1, "one round trip for all kinds")
	assert.True(t, calls[0].Batch)
	require.Len(t, calls[0].Statements, 4, "repeated pairs are sent once")
	assert.Equal(t, []any{"collection", "archive"}, calls[0].Statements[0].Args)
	assert.Equal(t, []any{"person", "ada"}, calls[0].Statements[3].Args)
}

func TestTagRepository_ResolveBatchOrderIgnoresInputOrder(t *testing.T) {
	batchArgs := func(tagsByKind map[models.TagKind][]string) [][]any {
		fake := storetest.NewFake()
		_, err := NewTagRepository(fake).Resolve(context.Background(), tagsByKind)
		require.NoError(t, err)

		calls := fake.Calls()
		require.Len(t, calls, 1)
		args := make([][]any, len(calls[0].Statements))
		for i, stmt := range calls[0].Statements {
			args[i] = stmt.Args
		}
		return args
	}

	a := batchArgs(map[models.TagKind][]string{
		models.TagPerson:     {"Ada", "Bob"},
		models.TagCollection: {"loc", "archive"},
	})
	b := batchArgs(map[models.TagKind][]string{
		models.TagPerson:     {"Bob", "Ada", "Bob"},
		models.TagCollection: {"archive", "loc"},
	})

	assert.Equal(t, a, b)
	assert.Equal(t, [][]any{
		{"collection", "archive"},
		{"collection", "loc"},
		{"person", "Ada"},
		{"person", "Bob"},
	}, a)
}

func TestTagRepository_ResolveKeysFollowInputOrder(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewTagRepository(fake)

	ab, err := repo.Resolve(context.Background(), map[models.TagKind][]string{models.TagPerson: {"Ada", "Bob"}})
	require.NoError(t, err)
	ba, err := repo.Resolve(context.Background(), map[models.TagKind][]string{models.TagPerson: {"Bob", "Ada"}})
	require.NoError(t, err)

	assert.Equal(t, []models.TagKey{ab[1], ab[0]}, ba)
}

func TestTagRepository_ResolveSharesKeysAcrossCalls(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewTagRepository(fake)

	first, err := repo.Resolve(context.Background(), map[models.TagKind][]string{models.TagIdentity: {"poet"}})
	require.NoError(t, err)
	second, err := repo.Resolve(context.Background(), map[models.TagKind][]string{models.TagIdentity: {"poet"}})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTagRepository_ResolveEmpty(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewTagRepository(fake)

	keys, err := repo.Resolve(context.Background(), map[models.TagKind][]string{
		models.TagPerson: nil,
		models.TagDecade: {},
	})
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Empty(t, fake.Calls())
}

func TestTagRepository_ResolveMissingKeyFails(t *testing.T) {
	fake := storetest.NewFake()
	fake.NoKeyWhen = func(stmt store.Statement) bool {
		return len(stmt.Args) == 2 && stmt.Args[1] == "1970"
	}
	repo := NewTagRepository(fake)

	_, err := repo.Resolve(context.Background(), map[models.TagKind][]string{
		models.TagDecade: {"1960", "1970"},
	})
	assert.ErrorIs(t, err, store.ErrNoKey)
}

func TestArtifactRepository_InsertArtifact(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewArtifactRepository(fake)
	repo.now = fixedNow

	key, err := repo.InsertArtifact(context.Background(), sampleDecomposed().Row)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactKey(1), key)

	stmts := fake.Statements("INSERT INTO artifacts ")
	require.Len(t, stmts, 1)
	assert.Equal(t, int64(1700000000), stmts[0].Args[6])
}

func TestArtifactRepository_InsertArtifactNoKey(t *testing.T) {
	fake := storetest.NewFake()
	fake.NoKeyWhen = storetest.Inserts("artifacts")
	repo := NewArtifactRepository(fake)

	_, err := repo.InsertArtifact(context.Background(), sampleDecomposed().Row)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNoKey)
	assert.Contains(t, err.Error(), "inserting artifact did not return a database id")
}

func TestArtifactRepository_InsertFiles(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewArtifactRepository(fake)
	d := sampleDecomposed()

	keyed, err := repo.InsertFiles(context.Background(), 42, d.Files)
	require.NoError(t, err)

	require.Len(t, keyed, 2)
	assert.Equal(t, "cover.jpg", keyed[0].Filename)
	assert.Equal(t, models.FileKey(1), keyed[0].Key)
	assert.Equal(t, "notes.txt", keyed[1].Filename)
	assert.Equal(t, models.FileKey(2), keyed[1].Key)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Batch)
	for _, stmt := range calls[0].Statements {
		assert.Equal(t, int64(42), stmt.Args[0])
	}
}

func TestArtifactRepository_InsertFilesEmpty(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewArtifactRepository(fake)

	keyed, err := repo.InsertFiles(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Nil(t, keyed)
	assert.Empty(t, fake.Calls())
}

func TestArtifactRepository_InsertFilesFailure(t *testing.T) {
	fake := storetest.NewFake()
	fake.FailWhen = storetest.Inserts("files")
	repo := NewArtifactRepository(fake)

	_, err := repo.InsertFiles(context.Background(), 1, sampleDecomposed().Files)
	assert.ErrorIs(t, err, storetest.ErrInjected)
}

func TestChildStatements_FileAliasesFollowFilePosition(t *testing.T) {
	d := sampleDecomposed()
	files := []models.KeyedFile{
		{ArtifactFile: models.ArtifactFile{Filename: "a", Aliases: []string{"a1", "a2"}}, Key: 10},
		{ArtifactFile: models.ArtifactFile{Filename: "b"}, Key: 11},
		{ArtifactFile: models.ArtifactFile{Filename: "c", Aliases: []string{"c1"}}, Key: 12},
	}

	stmts := ChildStatements(5, d, files, nil)

	var fileAliases [][]any
	for _, stmt := range stmts {
		if strings.Contains(stmt.SQL, "INSERT INTO file_aliases ") {
			fileAliases = append(fileAliases, stmt.Args)
		}
	}
	assert.Equal(t, [][]any{
		{int64(10), "a1"},
		{int64(10), "a2"},
		{int64(12), "c1"},
	}, fileAliases)
}

func TestChildStatements_TagReferencesDeduplicated(t *testing.T) {
	d := &models.Decomposed{}

	stmts := ChildStatements(5, d, nil, []models.TagKey{3, 4, 3, 4, 9})

	require.Len(t, stmts, 3)
	assert.Equal(t, []any{int64(5), int64(3)}, stmts[0].Args)
	assert.Equal(t, []any{int64(5), int64(4)}, stmts[1].Args)
	assert.Equal(t, []any{int64(5), int64(9)}, stmts[2].Args)
}

func TestArtifactRepository_InsertChildrenEmpty(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewArtifactRepository(fake)

	err := repo.InsertChildren(context.Background(), 1, &models.Decomposed{}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, fake.Calls())
}

func TestArtifactRepository_InsertChildrenSingleBatch(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewArtifactRepository(fake)
	d := sampleDecomposed()
	files := []models.KeyedFile{{ArtifactFile: d.Files[0], Key: 2}, {ArtifactFile: d.Files[1], Key: 3}}

	err := repo.InsertChildren(context.Background(), 1, d, files, []models.TagKey{7, 8})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Batch)
	// 1 alias + 1 file alias + 1 link + 2 tag references
	assert.Len(t, calls[0].Statements, 5)
}

func TestVersionRepository_Commit(t *testing.T) {
	fake := storetest.NewFake()
	repo := NewVersionRepository(fake)
	repo.now = fixedNow

	_, err := repo.Commit(context.Background(), 12, "artifact-a")
	require.NoError(t, err)

	stmts := fake.Statements("INSERT INTO artifact_versions ")
	require.Len(t, stmts, 1)
	assert.Equal(t, []any{"artifact-a", int64(12), int64(1700000000)}, stmts[0].Args)
	assert.True(t, stmts[0].Returning)
}

func TestVersionRepository_CommitFailure(t *testing.T) {
	fake := storetest.NewFake()
	fake.FailWhen = storetest.Inserts("artifact_versions")
	repo := NewVersionRepository(fake)

	_, err := repo.Commit(context.Background(), 12, "artifact-a")
	assert.True(t, errors.Is(err, storetest.ErrInjected))
}

// renderPlan prints every round trip with whitespace-collapsed SQL
func renderPlan(calls []storetest.Call) []byte {
	var b strings.Builder
	for _, call := range calls {
		if call.Batch {
			fmt.Fprintf(&b, "batch %d\n", len(call.Statements))
		} else {
			b.WriteString("execute\n")
		}
		for _, stmt := range call.Statements {
			fmt.Fprintf(&b, "  %s\n", strings.Join(strings.Fields(stmt.SQL), " "))

			args := make([]string, len(stmt.Args))
			for i, arg := range stmt.Args {
				args[i] = formatArg(arg)
			}
			fmt.Fprintf(&b, "    (%s)\n", strings.Join(args, ", "))
		}
	}
	return []byte(b.String())
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "NULL"
	case *string:
		if v == nil {
			return "NULL"
		}
		return fmt.Sprintf("%q", *v)
	case *int:
		if v == nil {
			return "NULL"
		}
		return fmt.Sprint(*v)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}

func TestSubmissionPlan(t *testing.T) {
	fake := storetest.NewFake()
	ctx := context.Background()
	d := sampleDecomposed()

	tags := NewTagRepository(fake)
	artifacts := NewArtifactRepository(fake)
	artifacts.now = fixedNow
	versions := NewVersionRepository(fake)
	versions.now = fixedNow

	tagKeys, err := tags.Resolve(ctx, d.Tags)
	require.NoError(t, err)
	key, err := artifacts.InsertArtifact(ctx, d.Row)
	require.NoError(t, err)
	files, err := artifacts.InsertFiles(ctx, key, d.Files)
	require.NoError(t, err)
	require.NoError(t, artifacts.InsertChildren(ctx, key, d, files, tagKeys))
	_, err = versions.Commit(ctx, key, d.ArtifactID)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "submission_plan", renderPlan(fake.Calls()))
}
