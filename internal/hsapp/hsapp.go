// Package hsapp wires Hardstop's ambient adapters (internal/hsconfig,
// internal/hsmetrics) together with its core packages (pkg/pipeline,
// pkg/store, pkg/suppress, pkg/health, pkg/runstatus, pkg/brief) into one
// application object cmd/hardstop drives. Nothing in pkg/ imports this
// package — it is the one place allowed to depend on all of them at
// once.
package hsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/WhatsYourWhy/hardstop/internal/hsconfig"
	"github.com/WhatsYourWhy/hardstop/internal/hsmetrics"
	"github.com/WhatsYourWhy/hardstop/internal/httpapi"
	"github.com/WhatsYourWhy/hardstop/pkg/brief"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/correlate"
	"github.com/WhatsYourWhy/hardstop/pkg/health"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/pipeline"
	"github.com/WhatsYourWhy/hardstop/pkg/runstatus"
	"github.com/WhatsYourWhy/hardstop/pkg/store"
	"github.com/WhatsYourWhy/hardstop/pkg/storelog"
	"github.com/WhatsYourWhy/hardstop/pkg/suppress"
)

// Repos bundles every repository one pipeline run touches.
type Repos struct {
	RawItems   *store.RawItemRepository
	Events     *store.EventRepository
	Alerts     *store.AlertRepository
	Evidence   *store.IncidentEvidenceRepository
	SourceRuns *store.SourceRunRepository
	RunRecords *store.RunRecordRepository
}

// App is the wired application: resolved config, opened repositories,
// and the metrics registry they report through.
type App struct {
	Clock    clock.Clock
	Config   hstypes.ResolvedConfig
	Repos    Repos
	Snapshot hstypes.NetworkSnapshot
	Metrics  *hsmetrics.Registry

	keyLock     *correlate.KeyLock
	suppression *suppress.Engine
}

var _ httpapi.Store = (*App)(nil)

// Options controls how an App's repositories are opened.
type Options struct {
	DataDir string // empty means in-memory, non-empty means file-backed under this directory
	Clock   clock.Clock
}

// Open resolves config from the registry/env files at the well-known
// paths and opens every repository, replaying whatever log state already
// exists under opts.DataDir.
func Open(opts Options) (*App, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewReal()
	}

	paths := hsconfig.LoadPaths()
	tierDefaults, sources, err := hsconfig.LoadSources(paths.SourcesRegistry)
	if err != nil {
		return nil, err
	}
	suppression, err := hsconfig.LoadSuppression(paths.SuppressionRegistry)
	if err != nil {
		return nil, err
	}
	snapshot, err := hsconfig.LoadNetworkSnapshot(paths.NetworkSnapshot)
	if err != nil {
		return nil, err
	}
	runtime := hsconfig.LoadRuntime()
	resolved := hsconfig.Resolve(tierDefaults, sources, suppression, runtime)

	repos, err := openRepos(opts.DataDir, clk)
	if err != nil {
		return nil, err
	}

	engine, err := suppress.New(clk, resolved.GlobalSuppression, resolved.Sources, resolved.Runtime.NoSuppress)
	if err != nil {
		return nil, err
	}

	return &App{
		Clock:       clk,
		Config:      resolved,
		Repos:       repos,
		Snapshot:    snapshot,
		Metrics:     hsmetrics.New(),
		keyLock:     correlate.NewKeyLock(),
		suppression: engine,
	}, nil
}

func openRepos(dataDir string, clk clock.Clock) (Repos, error) {
	logs, err := openLogs(dataDir)
	if err != nil {
		return Repos{}, err
	}

	rawItems, err := store.NewRawItemRepository(logs.rawItems, clk)
	if err != nil {
		return Repos{}, err
	}
	events, err := store.NewEventRepository(logs.events, clk)
	if err != nil {
		return Repos{}, err
	}
	alerts, err := store.NewAlertRepository(logs.alerts, clk)
	if err != nil {
		return Repos{}, err
	}
	evidence, err := store.NewIncidentEvidenceRepository(logs.evidence, clk)
	if err != nil {
		return Repos{}, err
	}
	sourceRuns, err := store.NewSourceRunRepository(logs.sourceRuns, clk)
	if err != nil {
		return Repos{}, err
	}
	runRecords, err := store.NewRunRecordRepository(logs.runRecords, clk)
	if err != nil {
		return Repos{}, err
	}

	return Repos{
		RawItems:   rawItems,
		Events:     events,
		Alerts:     alerts,
		Evidence:   evidence,
		SourceRuns: sourceRuns,
		RunRecords: runRecords,
	}, nil
}

type logSet struct {
	rawItems, events, alerts, evidence, sourceRuns, runRecords storelog.AppendOnlyLog
}

func openLogs(dataDir string) (logSet, error) {
	if dataDir == "" {
		return logSet{
			rawItems:   storelog.NewInMemoryLog(),
			events:     storelog.NewInMemoryLog(),
			alerts:     storelog.NewInMemoryLog(),
			evidence:   storelog.NewInMemoryLog(),
			sourceRuns: storelog.NewInMemoryLog(),
			runRecords: storelog.NewInMemoryLog(),
		}, nil
	}

	open := func(name string) (storelog.AppendOnlyLog, error) {
		return storelog.NewFileLog(dataDir + "/" + name + ".log")
	}

	rawItems, err := open("raw_items")
	if err != nil {
		return logSet{}, err
	}
	events, err := open("events")
	if err != nil {
		return logSet{}, err
	}
	alerts, err := open("alerts")
	if err != nil {
		return logSet{}, err
	}
	evidence, err := open("evidence")
	if err != nil {
		return logSet{}, err
	}
	sourceRuns, err := open("source_runs")
	if err != nil {
		return logSet{}, err
	}
	runRecords, err := open("run_records")
	if err != nil {
		return logSet{}, err
	}
	return logSet{rawItems, events, alerts, evidence, sourceRuns, runRecords}, nil
}

// Run drives one pipeline execution and persists its RunRecords, then
// reports the run's exit code and feeds it to the metrics registry.
func (a *App) Run(ctx context.Context, runGroupID string) (pipeline.Result, hstypes.ExitCode, []string, error) {
	mode := hstypes.ModeBestEffort
	if a.Config.Runtime.Strict {
		mode = hstypes.ModeStrict
	}

	result, err := pipeline.Run(ctx, pipeline.Dependencies{
		Clock:       a.Clock,
		Config:      a.Config,
		RawItems:    a.Repos.RawItems,
		Events:      a.Repos.Events,
		Alerts:      a.Repos.Alerts,
		Evidence:    a.Repos.Evidence,
		SourceRuns:  a.Repos.SourceRuns,
		Suppression: a.suppression,
		Snapshot:    a.Snapshot,
		KeyLock:     a.keyLock,
		RunGroupID:  runGroupID,
		Mode:        mode,
	})
	if err != nil {
		return result, hstypes.ExitBroken, []string{fmt.Sprintf("pipeline run failed: %v", err)}, err
	}

	for _, rr := range result.RunRecords {
		if err := a.Repos.RunRecords.Save(rr); err != nil {
			return result, hstypes.ExitBroken, nil, err
		}
	}
	for _, sr := range result.SourceRuns {
		a.Metrics.ObserveSourceRun(sr.SourceID, sr.Counters.ItemsProcessed, sr.Counters.ItemsAlertsTouched)
	}

	code, messages := a.evaluateRunStatus(result)
	a.Metrics.ObserveRunStatus(code)
	return result, code, messages, nil
}

// sourceHealthWindow gathers the last HealthWindowRuns FETCH rows plus the
// last HealthWindowRuns INGEST rows for sourceID, the window pkg/health
// expects its aggregation over.
func (a *App) sourceHealthWindow(sourceID string) []hstypes.SourceRun {
	window := a.Config.Runtime.HealthWindowRuns
	runs := a.Repos.SourceRuns.Recent(sourceID, hstypes.PhaseFetch, window)
	runs = append(runs, a.Repos.SourceRuns.Recent(sourceID, hstypes.PhaseIngest, window)...)
	return runs
}

func (a *App) evaluateRunStatus(result pipeline.Result) (hstypes.ExitCode, []string) {
	budgetStates := map[string]hstypes.BudgetState{}
	var stale []string
	for _, sourceID := range a.Repos.SourceRuns.SourceIDs() {
		runs := a.sourceHealthWindow(sourceID)
		h := health.Evaluate(runs, a.Clock.Now(), float64(a.Config.Runtime.StaleHoursThreshold))
		budgetStates[sourceID] = h.BudgetState
		a.Metrics.ObserveSourceHealth(sourceID, h.Score, h.BudgetState)
		if h.StaleHours > float64(a.Config.Runtime.StaleHoursThreshold) {
			stale = append(stale, sourceID)
		}
	}

	var fetchResults []runstatus.FetchOutcome
	for _, sourceID := range a.Repos.SourceRuns.SourceIDs() {
		latest := a.Repos.SourceRuns.Recent(sourceID, hstypes.PhaseFetch, 1)
		if len(latest) == 0 {
			continue
		}
		fr := latest[0]
		fetchResults = append(fetchResults, runstatus.FetchOutcome{
			SourceID:       fr.SourceID,
			Failed:         fr.Status == hstypes.RunFailure,
			ZeroItemsClean: fr.Status == hstypes.RunSuccess && fr.Counters.ItemsFetched == 0,
		})
	}

	var ingestResults []runstatus.IngestOutcome
	for _, sr := range result.SourceRuns {
		ingestResults = append(ingestResults, runstatus.IngestOutcome{SourceID: sr.SourceID, Failed: sr.Status == hstypes.RunFailure})
	}

	enabledCount := 0
	for _, s := range a.Config.Sources {
		if s.Enabled {
			enabledCount++
		}
	}

	return runstatus.Evaluate(runstatus.Input{
		EnabledSourceCount: enabledCount,
		FetchResults:       fetchResults,
		IngestResults:      ingestResults,
		StaleSources:       stale,
		SourceBudgetStates: budgetStates,
		Strict:             a.Config.Runtime.Strict,
	})
}

// Brief implements httpapi.Store.
func (a *App) Brief(window time.Duration, now time.Time) brief.Envelope {
	var suppressedEvents []hstypes.Event
	for _, e := range a.Repos.Events.List() {
		if e.Suppression.Suppressed() {
			suppressedEvents = append(suppressedEvents, e)
		}
	}
	return brief.Build(brief.Input{
		Alerts:           a.Repos.Alerts.List(),
		SuppressedEvents: suppressedEvents,
		Window:           window,
		Now:              now,
		Limit:            a.Config.Runtime.BriefTopCap,
	})
}

// SourceHealth implements httpapi.Store.
func (a *App) SourceHealth() map[string]httpapi.SourceHealthStatus {
	out := map[string]httpapi.SourceHealthStatus{}
	for _, sourceID := range a.Repos.SourceRuns.SourceIDs() {
		runs := a.sourceHealthWindow(sourceID)
		h := health.Evaluate(runs, a.Clock.Now(), float64(a.Config.Runtime.StaleHoursThreshold))
		out[sourceID] = httpapi.SourceHealthStatus{Score: h.Score, BudgetState: h.BudgetState}
	}
	return out
}

// RunStatus implements httpapi.Store, re-evaluating the run status from the
// stored SourceRun rows (each source's health window and its latest FETCH
// row); no ingest outcomes are included.
func (a *App) RunStatus() (hstypes.ExitCode, []string) {
	return a.evaluateRunStatus(pipeline.Result{})
}
