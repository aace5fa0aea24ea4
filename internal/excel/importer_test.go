package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/pkg/models"
)

func setup(t *testing.T) (*database.Repositories, *models.User) {
	t.Helper()
	db, err := database.Connect(database.TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repos := database.NewRepositories(db)
	u := &models.User{Username: "olga"}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return repos, u
}

func TestImportExcel(t *testing.T) {
	repos, u := setup(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "verbs.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Front", "Back", "Hint"},
		{"ir (fui, ido)", "to go", "irregular"},
		{"comer", "to eat", ""},
		{"", "orphan", ""},
		{"", "", ""},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.UserID = u.ID
	cfg.StackName = "verbs"

	res, err := NewImporter(repos).Import(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, res.StackCreated)
	assert.Equal(t, 3, res.TotalProcessed)
	assert.Equal(t, 2, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 4")

	card, err := repos.Cards.GetByFront(ctx, res.StackID, "ir")
	require.NoError(t, err)
	assert.Equal(t, "to go", card.Back)
	assert.Equal(t, "irregular", card.Hint)
}

func TestImportCSVUpdatesExisting(t *testing.T) {
	repos, u := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	first := filepath.Join(dir, "food.csv")
	require.NoError(t, os.WriteFile(first, []byte("front,back\nmanzana,apple\npan,bread\n"), 0o600))
	cfg := DefaultImportConfig()
	cfg.FilePath = first
	cfg.UserID = u.ID
	cfg.StackName = "food"

	res, err := NewImporter(repos).Import(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	second := filepath.Join(dir, "food2.csv")
	require.NoError(t, os.WriteFile(second, []byte("front,back,hint\nmanzana,apple\npan,loaf,\"not bread\"\nleche,milk\n"), 0o600))
	cfg.FilePath = second

	res, err = NewImporter(repos).Import(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, res.StackCreated)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Errors)

	n, err := repos.Cards.CountByStack(ctx, res.StackID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestImportRequiresStackName(t *testing.T) {
	repos, _ := setup(t)
	_, err := NewImporter(repos).Import(context.Background(), ImportConfig{FilePath: "x.csv"})
	assert.Error(t, err)
}

func TestColumnToIndex(t *testing.T) {
	assert.Equal(t, 0, columnToIndex("A"))
	assert.Equal(t, 2, columnToIndex("c"))
	assert.Equal(t, 26, columnToIndex("AA"))
}
