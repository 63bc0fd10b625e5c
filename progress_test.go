package fuzzsplit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressListenerDrawsPartitions(t *testing.T) {
	var out bytes.Buffer
	progress := NewProgressListener(&out)

	require.NoError(t, progress.OnStart(&Run{ID: "run-1", Wordlist: "words.txt", Partitions: 2, Done: map[int]bool{}}))
	require.NoError(t, progress.OnPartition(&Result{Index: 1, Total: 2}))
	require.NoError(t, progress.OnPartition(&Result{Index: 2, Total: 2}))

	assert.Contains(t, out.String(), "words.txt")
	assert.Contains(t, out.String(), "2/2")
	assert.True(t, progress.bar.IsFinished())
}

func TestProgressListenerFinishesWhenResumedRunSkipsLastPartition(t *testing.T) {
	progress := NewProgressListener(&bytes.Buffer{})

	require.NoError(t, progress.OnStart(&Run{ID: "run-1", Wordlist: "words.txt", Partitions: 3, Done: map[int]bool{3: true}}))
	require.NoError(t, progress.OnPartition(&Result{Index: 1, Total: 3}))
	assert.False(t, progress.bar.IsFinished())

	require.NoError(t, progress.OnPartition(&Result{Index: 2, Total: 3}))
	assert.True(t, progress.bar.IsFinished())
}

func TestProgressListenerFinishesWhenNothingIsLeft(t *testing.T) {
	progress := NewProgressListener(&bytes.Buffer{})

	require.NoError(t, progress.OnStart(&Run{ID: "run-1", Wordlist: "words.txt", Partitions: 2, Done: map[int]bool{1: true, 2: true}}))
	assert.True(t, progress.bar.IsFinished())
}

func TestProgressListenerIgnoresPartitionsBeforeStart(t *testing.T) {
	progress := NewProgressListener(&bytes.Buffer{})
	assert.NoError(t, progress.OnPartition(&Result{Index: 1, Total: 1}))
}
