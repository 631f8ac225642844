package relay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/mlsrelay/lib/store/lstore"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScenarios(t *testing.T) {
	perfLargePayloadKB = 1
	perfSkip = []string{"relay-large"}
	t.Cleanup(func() { perfSkip = nil })

	s := lstore.NewLocalStore()
	const threads, ops = 4, 20

	_, err := s.CreateGroup("perf-group", member(0))
	require.NoError(t, err)
	for thread := 1; thread < threads; thread++ {
		_, err = s.JoinGroup("perf-group", member(thread))
		require.NoError(t, err)
	}

	registry := gometrics.NewRegistry()
	results := make(map[string]perfResult)
	for _, sc := range perfScenarios() {
		results[sc.name] = runScenario(s, registry, "perf-group", sc, threads, ops)
	}

	for name, r := range results {
		if name == "relay-large" {
			assert.True(t, r.skipped)
			assert.Zero(t, r.timer.Count())
			continue
		}
		assert.False(t, r.skipped, name)
		assert.EqualValues(t, threads*ops, r.timer.Count(), name)
		assert.Zero(t, r.errors.Count(), name)
		assert.Positive(t, r.opsPerSec(), name)
	}

	// relay appends one entry per op, mixed one per four ops
	group, err := s.GetGroup("perf-group")
	require.NoError(t, err)
	assert.EqualValues(t, threads*ops+threads*ops/4, group.Messages)

	// the timers are registered under the scenario name
	assert.NotNil(t, registry.Get("relay.latency"))
}

func TestRunScenarioCountsErrors(t *testing.T) {
	perfSkip = nil
	s := lstore.NewLocalStore()

	var relay perfScenario
	for _, sc := range perfScenarios() {
		if sc.name == "relay" {
			relay = sc
		}
	}

	// the group does not exist, every relay fails
	r := runScenario(s, gometrics.NewRegistry(), "missing", relay, 2, 5)
	assert.EqualValues(t, 10, r.timer.Count())
	assert.EqualValues(t, 10, r.errors.Count())
}

func TestWriteResultsToCSV(t *testing.T) {
	perfSkip = []string{"get-bundle"}
	t.Cleanup(func() { perfSkip = nil })

	s := lstore.NewLocalStore()
	registry := gometrics.NewRegistry()
	results := make([]perfResult, 0)
	for _, sc := range perfScenarios()[:2] {
		results = append(results, runScenario(s, registry, "unused", sc, 1, 3))
	}

	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, writeResultsToCSV(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Test,Skipped,Ops,Errors,OpsPerSec,MeanNs,P50Ns,P95Ns,P99Ns")
	assert.Contains(t, string(data), "put-bundle,false,3,0,")
	assert.Contains(t, string(data), "get-bundle,true,0,0,0,0,0,0,0")
}
