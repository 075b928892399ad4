package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes one bakeryctl invocation against the SQLite file at db.
func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("R2_ENDPOINT", "")

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--sqlite", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func tempDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "bakery.db")
}

func TestPurchaseListGolden(t *testing.T) {
	db := tempDB(t)

	_, err := run(t, db, "seed")
	require.NoError(t, err)
	_, err = run(t, db, "sale", "1", "6")
	require.NoError(t, err)

	out, err := run(t, db, "purchase-list")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "purchase_list", []byte(out))
}

func TestPurchaseListEmpty(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "seed")
	require.NoError(t, err)

	out, err := run(t, db, "purchase-list")
	require.NoError(t, err)
	assert.Equal(t, "Purchase list (rules)\nNothing to buy.\n", out)
}

func TestSaleInsufficientStock(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "seed")
	require.NoError(t, err)

	out, err := run(t, db, "--format", "json", "sale", "1", "100")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
}

func TestSaleRejectsBadQuantity(t *testing.T) {
	_, err := run(t, tempDB(t), "sale", "1", "lots")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExportImportRoundTrip(t *testing.T) {
	source := tempDB(t)
	_, err := run(t, source, "seed")
	require.NoError(t, err)
	_, err = run(t, source, "sale", "2", "2")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "export.yaml")
	_, err = run(t, source, "export", "--output", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ingredients:")

	target := tempDB(t)
	out, err := run(t, target, "import", file)
	require.NoError(t, err)
	assert.Equal(t, "Imported 6 ingredients, 2 recipes and 1 sales\n", out)

	out, err = run(t, target, "--format", "json", "export")
	require.NoError(t, err)
	var bundle struct {
		Ingredients []map[string]interface{} `json:"ingredients"`
		Sales       []map[string]interface{} `json:"sales"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bundle))
	assert.Len(t, bundle.Ingredients, 6)
	assert.Len(t, bundle.Sales, 1)
}

func TestImportRejectsInvalidFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"ingredients": "nope"}`), 0o644))

	_, err := run(t, tempDB(t), "import", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestBackupDisabled(t *testing.T) {
	_, err := run(t, tempDB(t), "backup")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPredictText(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "seed")
	require.NoError(t, err)

	_, err = run(t, db, "sale", "1", "6")
	require.NoError(t, err)

	out, err := run(t, db, "predict")
	require.NoError(t, err)
	assert.Contains(t, out, "Stock prediction (rules)")
	assert.Contains(t, out, "Harina")
	assert.Contains(t, out, "Mantequilla")
	assert.Contains(t, out, "INGREDIENT")
}
