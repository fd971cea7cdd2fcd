package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/triage/pkg/triage/store"
	"github.com/cognicore/triage/pkg/triage/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := Open(t.TempDir())
		require.NoError(t, err)
		return st
	})
}

func TestArtifactLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	st, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, st.SavePipeline(context.Background(), store.DefaultArtifact, storetest.Pipeline(t)))
	require.NoError(t, st.SavePipeline(context.Background(), store.DefaultArtifact, storetest.Pipeline(t)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "model.json", entries[0].Name())
	assert.Equal(t, filepath.Join(dir, "model.json"), st.Path(store.DefaultArtifact))
}

func TestRejectsPathNames(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)

	err = st.SavePipeline(context.Background(), "../escape", storetest.Pipeline(t))
	assert.Error(t, err)
}

func TestListRunsSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.RecordRun(ctx, store.Run{ID: "first"}))

	f, err := os.OpenFile(filepath.Join(dir, runsFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, st.RecordRun(ctx, store.Run{ID: "second"}))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].ID)
	assert.Equal(t, "first", runs[1].ID)
}
