package fuzzsplit

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logrus.Logger {
	logger := logrus.New()
	logger.Out = testWriter{t}
	logger.Level = logrus.DebugLevel
	return logger
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (n int, err error) {
	tw.t.Log(string(p))
	return len(p), nil
}

func readFile(t *testing.T, path string) string {
	contents, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return string(contents)
}

// fakeSplitter hands back a labelled chunk instead of shelling out.
type fakeSplitter struct {
	calls [][2]int
	err   error
}

func (f *fakeSplitter) Chunk(ctx context.Context, wordlist string, part, total int) ([]byte, error) {
	f.calls = append(f.calls, [2]int{part, total})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("chunk-%d-of-%d\n", part, total)), nil
}

type engineCall struct {
	args  []string
	input string
}

// fakeEngine records every invocation. failOn maps a call number (1-based) to the error it returns.
type fakeEngine struct {
	calls  []engineCall
	failOn map[int]error
}

func (f *fakeEngine) Run(ctx context.Context, args []string, input []byte) error {
	f.calls = append(f.calls, engineCall{args: args, input: string(input)})
	return f.failOn[len(f.calls)]
}

type recordingListener struct {
	started *Run
	results []*Result
}

func (l *recordingListener) Name() string { return "recording" }

func (l *recordingListener) OnStart(run *Run) error {
	l.started = run
	return nil
}

func (l *recordingListener) OnPartition(result *Result) error {
	l.results = append(l.results, result)
	return nil
}

func testConfig(t *testing.T) *Config {
	return &Config{
		Target:    Target{URL: "http://localhost:8000/FUZZ"},
		Wordlist:  "./testdata/useragents.txt",
		Time:      "1",
		Rate:      "100",
		OutputDir: t.TempDir(),
		Splitter:  &fakeSplitter{},
		Engine:    &fakeEngine{},
		Logger:    testLogger(t),
	}
}

// bigWordlist writes lines words so a 1 req/s, 1 minute budget needs lines/60+1 partitions.
func bigWordlist(t *testing.T, lines int) string {
	path := filepath.Join(t.TempDir(), "wordlist.txt")
	var contents []byte
	for i := 0; i < lines; i++ {
		contents = append(contents, fmt.Sprintf("word%d\n", i)...)
	}
	require.NoError(t, ioutil.WriteFile(path, contents, 0o644))
	return path
}

func TestRunnerPlanCountsPartitions(t *testing.T) {
	config := testConfig(t)
	config.Wordlist = bigWordlist(t, 130)
	config.Rate = "1"

	run, err := (&Runner{Config: config}).Plan()
	require.NoError(t, err)
	assert.Equal(t, 130, run.Lines)
	assert.Equal(t, 3, run.Partitions)
	assert.NotEmpty(t, run.ID)
	assert.Empty(t, run.Done)
}

func TestRunnerPlanRejectsBadRate(t *testing.T) {
	config := testConfig(t)
	config.Rate = "fast"

	_, err := (&Runner{Config: config}).Plan()
	assert.Error(t, err)
}

func TestRunnerPlanMissingWordlist(t *testing.T) {
	config := testConfig(t)
	config.Wordlist = "./testdata/missing.txt"

	_, err := (&Runner{Config: config}).Plan()
	assert.Error(t, err)
}

func TestRunnerRunsEveryPartitionInOrder(t *testing.T) {
	config := testConfig(t)
	config.Wordlist = bigWordlist(t, 130)
	config.Rate = "1"
	config.ExtraArgs = []string{"-mc", "200"}
	splitter := config.Splitter.(*fakeSplitter)
	engine := config.Engine.(*fakeEngine)
	listener := &recordingListener{}
	config.Listeners = []Listener{listener}

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), run))

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, splitter.calls)
	require.Len(t, engine.calls, 3)
	for i, call := range engine.calls {
		assert.Equal(t, fmt.Sprintf("chunk-%d-of-3\n", i+1), call.input)
		assert.Equal(t, []string{"-u", "http://localhost:8000/FUZZ", "-rate", "1", "-of", "csv", "-mc", "200", "-w", "-", "-o"}, call.args[:len(call.args)-1])
		assert.Equal(t, config.OutputDir, filepath.Dir(call.args[len(call.args)-1]))
	}

	assert.Same(t, run, listener.started)
	require.Len(t, listener.results, 3)
	for i, result := range listener.results {
		assert.Equal(t, i+1, result.Index)
		assert.Equal(t, 3, result.Total)
		assert.False(t, result.WithToken)
		assert.NoError(t, result.Err)
	}
}

func TestRunnerContinuesAfterEngineFailure(t *testing.T) {
	config := testConfig(t)
	config.Wordlist = bigWordlist(t, 130)
	config.Rate = "1"
	engine := &fakeEngine{failOn: map[int]error{1: errors.New("ffuf failed: exit status 1")}}
	config.Engine = engine
	listener := &recordingListener{}
	config.Listeners = []Listener{listener}

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), run))

	assert.Len(t, engine.calls, 3)
	require.Len(t, listener.results, 3)
	assert.Error(t, listener.results[0].Err)
	assert.Equal(t, statusFailed, listener.results[0].Status())
	assert.Equal(t, statusDone, listener.results[1].Status())
}

func TestRunnerStopsWhenEngineCannotStart(t *testing.T) {
	config := testConfig(t)
	config.Wordlist = bigWordlist(t, 130)
	config.Rate = "1"
	engine := &fakeEngine{failOn: map[int]error{1: fmt.Errorf("%w ffuf: not found", ErrSpawn)}}
	config.Engine = engine

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)

	err = runner.Run(context.Background(), run)
	assert.ErrorIs(t, err, ErrSpawn)
	assert.Len(t, engine.calls, 1)
}

func TestRunnerStopsWhenStdinWriteFails(t *testing.T) {
	config := testConfig(t)
	engine := &fakeEngine{failOn: map[int]error{1: fmt.Errorf("%w: broken pipe", ErrStdin)}}
	config.Engine = engine

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)
	assert.ErrorIs(t, runner.Run(context.Background(), run), ErrStdin)
}

func TestRunnerStopsWhenSplitFails(t *testing.T) {
	config := testConfig(t)
	config.Splitter = &fakeSplitter{err: errors.New("split failed")}
	engine := config.Engine.(*fakeEngine)

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)
	assert.Error(t, runner.Run(context.Background(), run))
	assert.Empty(t, engine.calls)
}

func TestRunnerFetchesTokenForEveryPartition(t *testing.T) {
	var hits int32
	server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		fmt.Fprintf(w, "token-%d", n)
	})

	config := testConfig(t)
	config.Wordlist = bigWordlist(t, 70)
	config.Rate = "1"
	config.JWTURL = server.URL
	config.Tokens = testFetcher(t, "./testdata/request.txt")
	engine := config.Engine.(*fakeEngine)

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), run))

	require.Len(t, engine.calls, 2)
	assert.Equal(t, []string{"-H", "Authorization: token-1"}, engine.calls[0].args[:2])
	assert.Equal(t, []string{"-H", "Authorization: token-2"}, engine.calls[1].args[:2])
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRunnerReusesTokenWhenAsked(t *testing.T) {
	var hits int32
	server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		fmt.Fprintf(w, "token-%d", n)
	})

	config := testConfig(t)
	config.Wordlist = bigWordlist(t, 70)
	config.Rate = "1"
	config.JWTURL = server.URL
	config.ReuseToken = true
	config.Tokens = testFetcher(t, "./testdata/request.txt")
	engine := config.Engine.(*fakeEngine)

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), run))

	require.Len(t, engine.calls, 2)
	assert.Equal(t, "Authorization: token-1", engine.calls[1].args[1])
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestRunnerStopsWhenTokenFetchFails(t *testing.T) {
	server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	config := testConfig(t)
	config.JWTURL = server.URL
	config.Tokens = testFetcher(t, "./testdata/request.txt")
	engine := config.Engine.(*fakeEngine)

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)

	err = runner.Run(context.Background(), run)
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Empty(t, engine.calls)
}

func TestRunnerHonoursCancelledContext(t *testing.T) {
	config := testConfig(t)
	engine := config.Engine.(*fakeEngine)

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, runner.Run(ctx, run), context.Canceled)
	assert.Empty(t, engine.calls)
}

func TestRunnerWithoutLoggerUsesStandardLogger(t *testing.T) {
	config := testConfig(t)
	config.Logger = nil
	engine := config.Engine.(*fakeEngine)

	runner := &Runner{Config: config}
	run, err := runner.Plan()
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background(), run))
	assert.Len(t, engine.calls, 1)
	assert.Same(t, logrus.StandardLogger(), config.Logger)
}
