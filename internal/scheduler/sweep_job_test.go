package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullstate/largeworld/internal/events"
)

func writeSweepInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.txt")
	content := "N:6\nS:4\nE:10\nK:2\nr:2\nnum_periods:2\ni:4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSweepJobNameUsesInputFileBasename(t *testing.T) {
	job := &SweepJob{InputFile: "/tmp/whatever/sweep.txt"}
	assert.Equal(t, "sweep:sweep.txt", job.Name())
}

func TestSweepJobRunProducesACompletedRunDatabase(t *testing.T) {
	inputPath := writeSweepInput(t)
	dataDir := t.TempDir()
	bus := events.NewBus(zerolog.Nop())

	var completed int
	bus.Subscribe(events.RunCompleted, func(e *events.Event) { completed++ })

	job := &SweepJob{InputFile: inputPath, DataDir: dataDir, Bus: bus}
	require.NoError(t, job.Run())

	assert.Equal(t, 1, completed)

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), ".db")
}

func TestSweepJobRunPropagatesConfigErrors(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(badPath, []byte("not a valid line"), 0644))

	job := &SweepJob{InputFile: badPath, DataDir: dir, Bus: events.NewBus(zerolog.Nop())}
	assert.Error(t, job.Run())
}
