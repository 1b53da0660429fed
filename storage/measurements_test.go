package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *MeasurementStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "measurements.db")
	store, err := OpenMeasurementStore(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dfall.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV_SkipsHeaderAndMalformedRows(t *testing.T) {
	store := openTestStore(t)
	path := writeCSV(t, ",Brightness,Humidity,SetpointHistory,Temperature,roomname,date\n"+
		"0,123.0,45.2,22.0,21.5,Kitchen,2015-02-07 00:00:00\n"+
		"1,88.5,50.1,22.0,20.9,Toilet,2015-02-07 01:00:00\n"+
		"bad,row\n")

	inserted, err := store.LoadCSV(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	out, err := store.Query(context.Background(), "SELECT COUNT(*) AS n FROM measurement")
	require.NoError(t, err)
	assert.Equal(t, "n\n2", out)
}

func TestLoadCSV_RowsWithoutID(t *testing.T) {
	store := openTestStore(t)
	path := writeCSV(t, "Brightness,Humidity,SetpointHistory,Temperature,roomname,date\n"+
		"123.0,45.2,22.0,21.5,Kitchen,2015-02-07 00:00:00\n")

	inserted, err := store.LoadCSV(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	out, err := store.Query(context.Background(), "SELECT roomname FROM measurement")
	require.NoError(t, err)
	assert.Equal(t, "roomname\nKitchen", out)
}

func TestLoadCSV_MissingFile(t *testing.T) {
	store := openTestStore(t)
	_, err := store.LoadCSV(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestQuery_RendersHeaderAndRows(t *testing.T) {
	store := openTestStore(t)
	path := writeCSV(t, ",Brightness,Humidity,SetpointHistory,Temperature,roomname,date\n"+
		"0,123.0,45.2,22.0,21.5,Kitchen,2015-02-07 00:00:00\n"+
		"1,88.5,50.1,22.0,20.9,Toilet,2015-02-07 01:00:00\n")
	_, err := store.LoadCSV(context.Background(), path)
	require.NoError(t, err)

	out, err := store.Query(context.Background(),
		"SELECT roomname, Temperature FROM measurement ORDER BY roomname")

	require.NoError(t, err)
	assert.Equal(t, "roomname | Temperature\nKitchen | 21.5\nToilet | 20.9", out)
}

func TestQuery_RejectsWrites(t *testing.T) {
	store := openTestStore(t)
	path := writeCSV(t, ",Brightness,Humidity,SetpointHistory,Temperature,roomname,date\n"+
		"0,123.0,45.2,22.0,21.5,Kitchen,2015-02-07 00:00:00\n"+
		"1,88.5,50.1,22.0,20.9,Toilet,2015-02-07 01:00:00\n")
	_, err := store.LoadCSV(context.Background(), path)
	require.NoError(t, err)

	_, err = store.Query(context.Background(), "DELETE FROM measurement")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")

	// A WITH prefix passes the keyword check but the pinned read-only
	// connection still rejects the write.
	_, err = store.Query(context.Background(), "WITH t AS (SELECT 1) DELETE FROM measurement")
	require.Error(t, err)

	// Nothing was deleted, and the store still serves reads afterwards.
	out, err := store.Query(context.Background(), "SELECT COUNT(*) AS n FROM measurement")
	require.NoError(t, err)
	assert.Equal(t, "n\n2", out)
}

func TestQuery_AllowsCommonTableExpressions(t *testing.T) {
	store := openTestStore(t)

	out, err := store.Query(context.Background(),
		"WITH t(one) AS (SELECT 1) SELECT one FROM t")

	require.NoError(t, err)
	assert.Equal(t, "one\n1", out)
}

func TestQuery_TruncatesLongResults(t *testing.T) {
	store := openTestStore(t)

	out, err := store.Query(context.Background(),
		"WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM c WHERE x < 60) SELECT x FROM c")

	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	// Header, 50 rows, truncation note.
	assert.Len(t, lines, 52)
	assert.Equal(t, truncationNote, lines[51])
}

func TestTableDescription(t *testing.T) {
	store := openTestStore(t)

	schema, err := store.TableDescription(context.Background())

	require.NoError(t, err)
	assert.Contains(t, schema, "measurement")
	assert.Contains(t, schema, "Temperature")
	assert.Contains(t, schema, "roomname")
}
