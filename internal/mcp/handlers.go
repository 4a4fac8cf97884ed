package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/intersim/internal/pathutil"
	"github.com/nvandessel/intersim/internal/ratelimit"
	"github.com/nvandessel/intersim/internal/simulation"
	"github.com/nvandessel/intersim/internal/store"
)

// maxToolIterations bounds a suite requested over MCP.
const maxToolIterations = 20

// registerTools registers all intersim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRun,
		Description: "Run one intersection trial (the initial S:W, W:E, N:S scenario unless vehicles are given) and report whether every vehicle crossed before the deadlock timeout",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSuite,
		Description: "Run the randomized suite: several trials of 3-7 vehicles with random origins and destinations, stopping at the first failure",
	}, s.handleSuite)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolHistory,
		Description: "List recorded simulation runs, or show one run with its vehicles",
	}, s.handleHistory)
}

func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRun, start, retErr, map[string]any{
			"vehicles": strings.Join(args.Vehicles, " "), "scenario": pathutil.RedactPath(args.Scenario), "private": args.Private,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRun); err != nil {
		return nil, RunOutput{}, err
	}

	spec := simulation.InitialScenario()
	switch {
	case args.Scenario != "" && len(args.Vehicles) > 0:
		return nil, RunOutput{}, fmt.Errorf("scenario and vehicles cannot be combined")
	case args.Scenario != "":
		path, err := pathutil.ResolveWithin(s.root, args.Scenario)
		if err != nil {
			return nil, RunOutput{}, fmt.Errorf("invalid scenario path: %w", err)
		}
		if spec, err = simulation.LoadScenario(path); err != nil {
			return nil, RunOutput{}, err
		}
	case len(args.Vehicles) > 0:
		var err error
		if spec, err = simulation.ParseTrial("MCP run", args.Vehicles, true); err != nil {
			return nil, RunOutput{}, fmt.Errorf("invalid vehicles: %w", err)
		}
	}
	if args.Private {
		spec.Shared = false
	}

	trial, err := s.runner.Build(spec)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("failed to build trial: %w", err)
	}
	res := s.runner.Run(ctx, trial)
	if res.Outcome == simulation.OutcomeCancelled {
		return nil, RunOutput{}, res.Err
	}

	return nil, RunOutput{
		Run:     summarize(res),
		Message: verdict(res),
	}, nil
}

func (s *Server) handleSuite(ctx context.Context, req *sdk.CallToolRequest, args SuiteInput) (_ *sdk.CallToolResult, _ SuiteOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolSuite, start, retErr, map[string]any{
			"iterations": args.Iterations, "seed": args.Seed, "shared": args.Shared,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSuite); err != nil {
		return nil, SuiteOutput{}, err
	}

	opts := s.suite
	if args.Iterations != 0 {
		opts.Iterations = args.Iterations
	}
	if opts.Iterations > maxToolIterations {
		return nil, SuiteOutput{}, fmt.Errorf("iterations must be at most %d, got %d", maxToolIterations, opts.Iterations)
	}
	if args.Seed != 0 {
		opts.Seed = args.Seed
	}
	opts.Shared = opts.Shared || args.Shared

	sr, err := s.runner.RunSuite(ctx, opts)
	if err != nil {
		return nil, SuiteOutput{}, err
	}
	if n := len(sr.Results); n > 0 && sr.Results[n-1].Outcome == simulation.OutcomeCancelled {
		return nil, SuiteOutput{}, sr.Results[n-1].Err
	}

	out := SuiteOutput{
		Seed:   sr.Seed,
		Passed: sr.Passed(),
		Runs:   make([]RunSummary, 0, len(sr.Results)),
	}
	for _, r := range sr.Results {
		out.Runs = append(out.Runs, summarize(r))
	}
	if out.Passed {
		out.Message = fmt.Sprintf("All %d tests passed (seed %d)", len(out.Runs), out.Seed)
	} else {
		last := sr.Results[len(sr.Results)-1]
		out.Message = fmt.Sprintf("%s failed (seed %d): %s", last.Name, out.Seed, verdict(last))
	}
	return nil, out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolHistory, start, retErr, map[string]any{
			"limit": args.Limit, "run_id": args.RunID,
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolHistory); err != nil {
		return nil, HistoryOutput{}, err
	}

	if args.RunID != "" {
		rec, vehicles, err := s.store.GetRun(ctx, args.RunID)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		return nil, HistoryOutput{Runs: []store.RunRecord{*rec}, Vehicles: vehicles, Count: 1}, nil
	}

	runs, err := s.store.ListRuns(ctx, args.Limit)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	return nil, HistoryOutput{Runs: runs, Count: len(runs)}, nil
}

// verdict phrases a result the way the transcript does.
func verdict(r simulation.Result) string {
	switch r.Outcome {
	case simulation.OutcomeSuccess:
		return fmt.Sprintf("All vehicles crossed in %s", r.Elapsed.Round(time.Millisecond))
	case simulation.OutcomeDeadlock:
		return fmt.Sprintf("Not all vehicles finished within %s, possible deadlock (%d stuck)", r.Settings.Timeout, len(r.Stuck()))
	default:
		return fmt.Sprintf("Simulation %s: %v", r.Outcome, r.Err)
	}
}
