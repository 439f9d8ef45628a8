package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/runeterra-roulette/backend/internal/database"
	"github.com/runeterra-roulette/backend/internal/models"
)

func ingestCard(code string, region models.RegionRef, rarity models.RarityRef) models.Card {
	return models.Card{
		CardCode:    code,
		Name:        "Card " + code,
		Set:         "Set1",
		Region:      string(region),
		RegionRef:   region,
		Rarity:      string(rarity),
		RarityRef:   rarity,
		Collectible: true,
		Assets: []models.CardAsset{{
			GameAbsolutePath: "http://dd.b.pvp.net/1_0_0/set1/en_us/img/cards/" + code + ".png",
		}},
	}
}

func newSQLiteStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "cards.db"), database.EmptyFilterMatchAll)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestIngestionPipeline_Run(t *testing.T) {
	srv, _ := bundleServer(t, map[string][]byte{
		"set1-lite-en_us.zip": setArchive(t, 1, []models.Card{
			ingestCard("01DE001", models.RegionDemacia, models.RarityCommon),
			ingestCard("01NX001", models.RegionNoxus, models.RarityRare),
		}),
		"set2-lite-en_us.zip": setArchive(t, 2, []models.Card{
			ingestCard("02BW001", models.RegionBilgewater, models.RarityChampion),
		}),
	})

	workDir := filepath.Join(t.TempDir(), "temp")
	store := newSQLiteStore(t)
	fetcher := NewSetFetcher(SetFetcherConfig{BaseURL: srv.URL, WorkDir: workDir})

	result, err := NewIngestionPipeline(fetcher, store, 2).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Sets)
	assert.Equal(t, 3, result.CardsUpserted)
	assert.Equal(t, "1_0_0", result.Version)

	version, err := store.GetCollectionVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1_0_0", version)

	cur, err := store.FindCards(context.Background(), database.CardQuery{})
	require.NoError(t, err)
	cards, err := database.CollectCards(context.Background(), cur)
	require.NoError(t, err)
	assert.Len(t, cards, 3)

	_, err = os.Stat(workDir)
	assert.True(t, os.IsNotExist(err), "working directory should be removed")

	// A second run over the same data leaves the store unchanged.
	_, err = NewIngestionPipeline(fetcher, store, 2).Run(context.Background())
	require.NoError(t, err)
	cur, err = store.FindCards(context.Background(), database.CardQuery{})
	require.NoError(t, err)
	cards, err = database.CollectCards(context.Background(), cur)
	require.NoError(t, err)
	assert.Len(t, cards, 3)
}

func TestIngestionPipeline_DownloadFailureAbortsRun(t *testing.T) {
	srv, _ := bundleServer(t, map[string][]byte{
		"set1-lite-en_us.zip": setArchive(t, 1, []models.Card{ingestCard("01DE001", models.RegionDemacia, models.RarityCommon)}),
	})

	workDir := filepath.Join(t.TempDir(), "temp")
	store := newSQLiteStore(t)
	fetcher := NewSetFetcher(SetFetcherConfig{BaseURL: srv.URL, WorkDir: workDir})

	_, err := NewIngestionPipeline(fetcher, store, 2).Run(context.Background())
	assert.ErrorIs(t, err, ErrDownload)

	// Nothing was parsed because every set is downloaded before any is read.
	_, err = store.FirstAssetPath(context.Background())
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = os.Stat(workDir)
	assert.True(t, os.IsNotExist(err))
}

func TestIngestSetFile(t *testing.T) {
	dir := t.TempDir()
	store := newSQLiteStore(t)
	p := NewIngestionPipeline(nil, store, 1)

	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(valid, setJSON(t, []models.Card{
		ingestCard("01DE001", models.RegionDemacia, models.RarityCommon),
		ingestCard("01DE002", models.RegionDemacia, models.RarityCommon),
	}), 0644))

	n, err := p.IngestSetFile(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `[{"cardCode": "01DE003",`},
		{"not an array", `{"cardCode": "01DE003"}`},
		{"missing card code", `[{"name": "Nameless"}]`},
		{"empty card code", `[{"cardCode": "", "name": "Blank"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			n, err := p.IngestSetFile(context.Background(), path)
			assert.ErrorIs(t, err, ErrParse)
			assert.Zero(t, n)
		})
	}

	_, err = p.IngestSetFile(context.Background(), filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrParse)
}

// stubSource hands out pre-written set files without any network access.
type stubSource struct {
	paths       map[int]string
	extractErr  error
	cleanupErr  error
	cleanedUp   bool
	downloadErr error
}

func (s *stubSource) Prepare() error { return nil }

func (s *stubSource) Download(ctx context.Context, setNum int) (string, error) {
	return "", s.downloadErr
}

func (s *stubSource) Extract(setNum int) (string, error) {
	if s.extractErr != nil {
		return "", s.extractErr
	}
	return s.paths[setNum], nil
}

func (s *stubSource) Cleanup() error {
	s.cleanedUp = true
	return s.cleanupErr
}

// recordingWriter wraps a real store and can fail individual steps.
type recordingWriter struct {
	CardWriter
	firstAssetPath string
	indexed        bool
	versionErr     error
}

func (w *recordingWriter) FirstAssetPath(ctx context.Context) (string, error) {
	if w.firstAssetPath != "" {
		return w.firstAssetPath, nil
	}
	return w.CardWriter.FirstAssetPath(ctx)
}

func (w *recordingWriter) CreateIndexes(ctx context.Context) error {
	w.indexed = true
	return w.CardWriter.CreateIndexes(ctx)
}

func (w *recordingWriter) UpsertCollectionVersion(ctx context.Context, version string) error {
	if w.versionErr != nil {
		return w.versionErr
	}
	return w.CardWriter.UpsertCollectionVersion(ctx, version)
}

func writeSetFile(t *testing.T, cards ...models.Card) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "set.json")
	require.NoError(t, os.WriteFile(path, setJSON(t, cards), 0644))
	return path
}

func TestIngestionPipeline_VersionDerivationFailureKeepsCards(t *testing.T) {
	store := newSQLiteStore(t)
	writer := &recordingWriter{CardWriter: store, firstAssetPath: "http://cdn.example.com/card.png"}
	source := &stubSource{paths: map[int]string{
		1: writeSetFile(t, ingestCard("01DE001", models.RegionDemacia, models.RarityCommon)),
	}}

	result, err := NewIngestionPipeline(source, writer, 1).Run(context.Background())
	assert.ErrorIs(t, err, ErrVersionDerivation)
	assert.Equal(t, 1, result.CardsUpserted)
	assert.True(t, writer.indexed, "indexes are created before the version is derived")
	assert.True(t, source.cleanedUp)

	_, err = store.GetCollectionVersion(context.Background())
	assert.ErrorIs(t, err, database.ErrNotFound)

	path, err := store.FirstAssetPath(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}

func TestIngestionPipeline_VersionWriteFailure(t *testing.T) {
	store := newSQLiteStore(t)
	writer := &recordingWriter{CardWriter: store, versionErr: fmt.Errorf("write: %w", database.ErrConnection)}
	source := &stubSource{paths: map[int]string{
		1: writeSetFile(t, ingestCard("01DE001", models.RegionDemacia, models.RarityCommon)),
	}}

	_, err := NewIngestionPipeline(source, writer, 1).Run(context.Background())
	assert.ErrorIs(t, err, ErrVersionDerivation)
}

func TestIngestionPipeline_ExtractionFailure(t *testing.T) {
	store := newSQLiteStore(t)
	source := &stubSource{extractErr: fmt.Errorf("%w: boom", ErrExtraction)}

	_, err := NewIngestionPipeline(source, store, 3).Run(context.Background())
	assert.ErrorIs(t, err, ErrExtraction)
	assert.True(t, source.cleanedUp)
}

func TestIngestionPipeline_CleanupFailureIsNotFatal(t *testing.T) {
	store := newSQLiteStore(t)
	source := &stubSource{
		paths: map[int]string{
			1: writeSetFile(t, ingestCard("01DE001", models.RegionDemacia, models.RarityCommon)),
		},
		cleanupErr: errors.New("permission denied"),
	}

	result, err := NewIngestionPipeline(source, store, 1).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1_0_0", result.Version)
	assert.True(t, source.cleanedUp)
}

// capturingWriter records every card handed to UpsertCard.
type capturingWriter struct {
	CardWriter
	cards []models.Card
}

func (w *capturingWriter) UpsertCard(ctx context.Context, card *models.Card) error {
	w.cards = append(w.cards, *card)
	return nil
}

func TestIngestSetFile_KeepsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"cardCode":"01DE001","name":"A","regionRefs":["Demacia"],"formats":["Standard"],"rank":2}]`), 0644))

	writer := &capturingWriter{}
	n, err := NewIngestionPipeline(nil, writer, 1).IngestSetFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	data, err := bson.Marshal(&writer.cards[0])
	require.NoError(t, err)
	var doc bson.M
	require.NoError(t, bson.Unmarshal(data, &doc))

	assert.Equal(t, "01DE001", doc["_id"])
	assert.Equal(t, bson.A{"Demacia"}, doc["regionRefs"])
	assert.Equal(t, bson.A{"Standard"}, doc["formats"])
	assert.EqualValues(t, 2, doc["rank"])
}

func TestIngestSetFile_KeepsUnknownFieldsInSQLite(t *testing.T) {
	store := newSQLiteStore(t)
	path := filepath.Join(t.TempDir(), "set.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"cardCode":"01DE001","name":"A","collectible":true,"formats":["Standard"]}]`), 0644))

	_, err := NewIngestionPipeline(nil, store, 1).IngestSetFile(context.Background(), path)
	require.NoError(t, err)

	cur, err := store.FindCards(context.Background(), database.CardQuery{})
	require.NoError(t, err)
	cards, err := database.CollectCards(context.Background(), cur)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, []any{"Standard"}, cards[0].Extra["formats"])
}

func TestIngestSetFile_EmptyNameIsStored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"cardCode":"01DE001","name":"A"},{"cardCode":"01DE002","name":""}]`), 0644))

	writer := &capturingWriter{}
	n, err := NewIngestionPipeline(nil, writer, 1).IngestSetFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, writer.cards, 2)
	assert.Equal(t, "01DE002", writer.cards[1].CardCode)
	assert.Empty(t, writer.cards[1].Name)
}
