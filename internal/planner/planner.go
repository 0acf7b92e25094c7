// Package planner is the request/response boundary around the optimization engine.
package planner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/offcut"
)

// Request is one optimization job as received from a client.
type Request struct {
	Pieces           []model.CuttingPiece   `json:"pieces"`
	Sheets           []model.SourceSheet    `json:"sheets"`
	Params           *model.ParamsPatch     `json:"params,omitempty"`
	UseIterations    bool                   `json:"useIterations"`
	UseSmartOptimize bool                   `json:"useSmartOptimize"`
	UseOffcuts       bool                   `json:"useOffcuts"`
	OffcutStock      []model.ReusableOffcut `json:"offcutStock,omitempty"`

	// Owner also admits stock offcuts reserved by this owner.
	Owner string `json:"-"`
}

// Response is the outcome of Run. Failures are reported in Error, never panicked.
type Response struct {
	Success         bool                     `json:"success"`
	Message         string                   `json:"message"`
	Warnings        []string                 `json:"warnings"`
	Plan            *model.CuttingPlan       `json:"plan,omitempty"`
	ReusableOffcuts []model.ReusableOffcut   `json:"reusableOffcuts"`
	ConsumedOffcuts []string                 `json:"consumedOffcuts,omitempty"`
	Params          model.OptimizationParams `json:"params"`
	Error           *model.OptimizationError `json:"error,omitempty"`
}

// Run validates and optimizes the request with the given defaults.
func Run(ctx context.Context, req Request, defaults model.OptimizationParams) (resp Response) {
	params := req.Params.Apply(defaults)
	resp.Params = params
	resp.Warnings = []string{}
	resp.ReusableOffcuts = []model.ReusableOffcut{}

	defer func() {
		if r := recover(); r != nil {
			klog.ErrorS(nil, "optimization panicked", "panic", r, "stack", string(debug.Stack()))
			resp = failure(resp, model.NewError(model.ErrInternal, "optimization failed: %v", r))
		}
	}()

	sheets := req.Sheets
	if req.UseOffcuts && len(req.OffcutStock) > 0 {
		stock := usableStock(req.OffcutStock, req.Owner)
		if skipped := len(req.OffcutStock) - len(stock); skipped > 0 {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("%d offcuts skipped because they are not available", skipped))
		}
		offcut.SortForConsumption(stock)
		sheets = append(offcut.ToSourceSheets(stock), sheets...)
	}

	opt := engine.New(params)
	var (
		plan model.CuttingPlan
		err  error
	)
	switch {
	case req.UseSmartOptimize:
		plan, err = opt.SmartOptimize(ctx, req.Pieces, sheets)
	case req.UseIterations:
		plan, err = opt.OptimizeWithIterations(ctx, req.Pieces, sheets)
	default:
		plan, err = opt.Optimize(req.Pieces, sheets)
	}
	if err != nil {
		return failure(resp, asOptimizationError(err))
	}

	if err := engine.VerifyPlan(plan, req.Pieces, params); err != nil {
		klog.ErrorS(err, "plan failed verification", "strategy", plan.Strategy)
		return failure(resp, asOptimizationError(err))
	}

	resp.Success = true
	resp.Plan = &plan
	resp.Warnings = append(resp.Warnings, unplacedWarnings(req.Pieces, plan)...)
	resp.ConsumedOffcuts = offcut.Consumed(plan)
	if extracted := offcut.Extract(plan, params); len(extracted) > 0 {
		resp.ReusableOffcuts = extracted
	}
	resp.Message = fmt.Sprintf("placed %d of %d pieces on %d sheets (%.1f%% efficiency)",
		plan.Stats.PlacedPieces, plan.Stats.TotalPieces, plan.Stats.TotalSheets, plan.Stats.GlobalEfficiency)
	return resp
}

// usableStock keeps allocatable offcuts plus those already reserved by owner.
func usableStock(offcuts []model.ReusableOffcut, owner string) []model.ReusableOffcut {
	out := offcut.Filter(offcuts, offcut.Criteria{})
	if owner == "" {
		return out
	}
	for _, o := range offcuts {
		if o.State == model.OffcutReserved && o.ReservedBy == owner {
			out = append(out, o)
		}
	}
	return out
}

func failure(resp Response, err *model.OptimizationError) Response {
	resp.Success = false
	resp.Plan = nil
	resp.Message = err.Error()
	resp.Error = err
	return resp
}

func asOptimizationError(err error) *model.OptimizationError {
	var oe *model.OptimizationError
	if errors.As(err, &oe) {
		return oe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.NewError(model.ErrInternal, "optimization aborted: %v", err)
	}
	return model.NewError(model.ErrInternal, "%v", err)
}

// unplacedWarnings reports one line per piece with units left over, in input order.
func unplacedWarnings(pieces []model.CuttingPiece, plan model.CuttingPlan) []string {
	counts := map[string]int{}
	for _, u := range plan.UnplacedPieces {
		counts[u.ID] += u.Quantity
	}
	var out []string
	for _, p := range pieces {
		if n := counts[p.ID]; n > 0 {
			name := p.Name
			if name == "" {
				name = p.ID
			}
			out = append(out, fmt.Sprintf("%s (%s): %d of %d units could not be placed",
				name, p.ExpandedDimensions(), n, p.Quantity))
		}
	}
	return out
}
