package job

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dex-sentinel/internal/worker/blacklist"
	"dex-sentinel/internal/worker/model"
	"dex-sentinel/internal/worker/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticFeed struct {
	pairs []model.TradingPair
	err   error
}

func (f staticFeed) FetchLatestPairs(context.Context) ([]model.TradingPair, error) {
	return f.pairs, f.err
}

type scriptedProcessor struct {
	seen     []string
	cycleIDs map[string]struct{}
}

func (p *scriptedProcessor) Process(_ context.Context, cycleID string, pair model.TradingPair) (service.Result, error) {
	p.seen = append(p.seen, pair.PairAddress)
	if p.cycleIDs == nil {
		p.cycleIDs = make(map[string]struct{})
	}
	p.cycleIDs[cycleID] = struct{}{}

	switch pair.PairAddress {
	case "BOOM":
		panic("nil liquidity")
	case "BAD":
		return service.Result{}, fmt.Errorf("%w: database is locked", service.ErrPersistence)
	case "SCAM":
		return service.Result{Outcome: service.OutcomeRejected}, nil
	}
	return service.Result{Outcome: service.OutcomePersisted}, nil
}

type patternSpy struct {
	calls     int
	threshold float64
	err       error
}

func (p *patternSpy) Detect(_ context.Context, th float64) (service.PatternReport, error) {
	p.calls++
	p.threshold = th
	return service.PatternReport{}, p.err
}

type saveSpy struct {
	saves int
}

func (s *saveSpy) Load(context.Context) ([]string, []string, error) { return nil, nil, nil }

func (s *saveSpy) Save(context.Context, []string, []string) error {
	s.saves++
	return nil
}

func testPairs(addrs ...string) []model.TradingPair {
	out := make([]model.TradingPair, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, model.TradingPair{ChainID: "solana", PairAddress: a})
	}
	return out
}

func TestScanCycleProcessesSequentially(t *testing.T) {
	proc := &scriptedProcessor{}
	patterns := &patternSpy{}
	store := &saveSpy{}
	job := NewScanJob(staticFeed{pairs: testPairs("A", "SCAM", "B")}, proc, patterns,
		blacklist.New(nil, nil), store, 50, 50, zap.NewNop())

	summary, err := job.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "SCAM", "B"}, proc.seen)
	assert.Len(t, proc.cycleIDs, 1, "one cycle id per cycle")
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Outcomes[service.OutcomePersisted])
	assert.Equal(t, 1, summary.Outcomes[service.OutcomeRejected])
	assert.Equal(t, 1, patterns.calls)
	assert.Equal(t, 50.0, patterns.threshold)
	assert.Equal(t, 1, store.saves)
	assert.NotEmpty(t, summary.CycleID)
}

func TestScanCycleTruncatesBatch(t *testing.T) {
	addrs := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		addrs = append(addrs, fmt.Sprintf("P%d", i))
	}
	proc := &scriptedProcessor{}
	job := NewScanJob(staticFeed{pairs: testPairs(addrs...)}, proc, nil,
		blacklist.New(nil, nil), nil, 0, 50, zap.NewNop())

	summary, err := job.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_BATCH_SIZE, summary.Fetched)
	assert.Len(t, proc.seen, DEFAULT_BATCH_SIZE)
	assert.Equal(t, "P49", proc.seen[len(proc.seen)-1])
}

func TestScanCycleFeedErrorIsEmptyBatch(t *testing.T) {
	proc := &scriptedProcessor{}
	patterns := &patternSpy{}
	job := NewScanJob(staticFeed{err: errors.New("503")}, proc, patterns,
		blacklist.New(nil, nil), nil, 50, 50, zap.NewNop())

	summary, err := job.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Fetched)
	assert.Empty(t, proc.seen)
	assert.Equal(t, 1, patterns.calls, "patterns still run over stored records")
}

func TestScanCyclePanicIsolatedToPair(t *testing.T) {
	proc := &scriptedProcessor{}
	job := NewScanJob(staticFeed{pairs: testPairs("A", "BOOM", "B")}, proc, nil,
		blacklist.New(nil, nil), nil, 50, 50, zap.NewNop())

	summary, err := job.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "BOOM", "B"}, proc.seen)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Outcomes[service.OutcomePersisted])
}

func TestScanCyclePersistenceErrorAborts(t *testing.T) {
	proc := &scriptedProcessor{}
	patterns := &patternSpy{}
	store := &saveSpy{}
	job := NewScanJob(staticFeed{pairs: testPairs("A", "BAD", "B")}, proc, patterns,
		blacklist.New(nil, nil), store, 50, 50, zap.NewNop())

	summary, err := job.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrPersistence)
	assert.Equal(t, []string{"A", "BAD"}, proc.seen)
	assert.Equal(t, 1, summary.Processed)
	assert.Zero(t, patterns.calls)
	assert.Equal(t, 1, store.saves, "blacklist flushed on abort")
}

func TestScanCycleStopsOnCancelledContext(t *testing.T) {
	proc := &scriptedProcessor{}
	patterns := &patternSpy{}
	job := NewScanJob(staticFeed{pairs: testPairs("A", "B")}, proc, patterns,
		blacklist.New(nil, nil), nil, 50, 50, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := job.RunCycle(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Empty(t, proc.seen)
	assert.Zero(t, patterns.calls)
}

func TestScanJobPumpThresholdReload(t *testing.T) {
	patterns := &patternSpy{err: errors.New("no such table")}
	job := NewScanJob(staticFeed{}, &scriptedProcessor{}, patterns,
		blacklist.New(nil, nil), nil, 50, 50, zap.NewNop())

	job.SetPumpThreshold(80)
	require.NoError(t, job.Run(context.Background()), "pattern errors only warn")
	assert.Equal(t, 80.0, patterns.threshold)
}

func TestBlacklistRestore(t *testing.T) {
	list := blacklist.New([]string{"SCAM"}, nil)
	store := &loadStore{coins: []string{"scam", "rug"}, devs: []string{"0xDEV"}}

	require.NoError(t, NewBlacklistRestore(list, store, zap.NewNop()).Run(context.Background()))
	assert.Equal(t, []string{"RUG", "SCAM"}, list.Coins())
	assert.True(t, list.ContainsDeveloper("0xdev"))

	require.NoError(t, NewBlacklistRestore(list, nil, zap.NewNop()).Run(context.Background()))

	failing := &loadStore{err: errors.New("connection refused")}
	assert.Error(t, NewBlacklistRestore(list, failing, zap.NewNop()).Run(context.Background()))
}

type loadStore struct {
	coins, devs []string
	err         error
}

func (s *loadStore) Load(context.Context) ([]string, []string, error) {
	return s.coins, s.devs, s.err
}

func (s *loadStore) Save(context.Context, []string, []string) error { return nil }
