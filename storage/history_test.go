package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"basketswap/core/types"
)

func exerciseHistory(t *testing.T, db Database) {
	t.Helper()
	history := NewHistory(db)

	// out of order on purpose; steps come back sorted by index
	for _, step := range []int{2, 0, 10, 1} {
		require.NoError(t, history.Record(StepRecord{
			Run:  "exchange",
			Step: step,
			Op:   "pool.exchange",
			Events: []*types.Event{{
				Type:       "pool.exchanged",
				Attributes: map[string]string{"soldIndex": "0"},
			}},
		}))
	}
	require.NoError(t, history.Record(StepRecord{Run: "exchange-b", Step: 0, Op: "pool.pause", Reason: "not_authorized"}))

	steps, err := history.Steps("exchange")
	require.NoError(t, err)
	require.Len(t, steps, 4)
	for i, want := range []int{0, 1, 2, 10} {
		require.Equal(t, want, steps[i].Step)
	}
	require.Equal(t, "0", steps[0].Events[0].Attr("soldIndex"))

	other, err := history.Steps("exchange-b")
	require.NoError(t, err)
	require.Len(t, other, 1)
	require.Equal(t, "not_authorized", other[0].Reason)

	runs, err := history.Runs()
	require.NoError(t, err)
	require.Equal(t, []string{"exchange", "exchange-b"}, runs)

	require.Error(t, history.Record(StepRecord{Run: "a/b"}))
	require.Error(t, history.Record(StepRecord{Run: "ok", Step: -1}))
	_, err = history.Steps("")
	require.Error(t, err)
}

func TestHistoryMemDB(t *testing.T) {
	exerciseHistory(t, NewMemDB())
}

func TestHistoryLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	defer db.Close()
	exerciseHistory(t, db)
}

func TestGetMissingKey(t *testing.T) {
	mem := NewMemDB()
	_, err := mem.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	level, err := NewLevelDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer level.Close()
	_, err = level.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, level.Put([]byte("k"), []byte("v")))
	value, err := level.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), value)
}
