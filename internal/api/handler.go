// Package api exposes the optimizer, exports, plan sharing and the offcut stock over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/offcut"
	"github.com/piwi3910/cutplan/internal/planner"
	"github.com/piwi3910/cutplan/internal/share"
)

// Handler serves the /api routes.
type Handler struct {
	stock    Stock
	shares   *share.Store
	defaults model.OptimizationParams
}

func NewHandler(stock Stock, shares *share.Store, defaults model.OptimizationParams) *Handler {
	return &Handler{stock: stock, shares: shares, defaults: defaults}
}

// NewRouter builds the engine with logging and recovery middleware.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r.Group("/api"))
	return r
}

// RegisterRoutes mounts every endpoint on the group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/params/defaults", h.GetDefaults)
	r.POST("/optimize", h.Optimize)

	r.POST("/report", h.Report)
	r.POST("/report/pdf", h.ReportPDF)
	r.POST("/report/labels", h.ReportLabels)
	r.POST("/report/dxf", h.ReportDXF)
	r.POST("/report/xlsx", h.ReportXLSX)

	r.POST("/benchmark", h.Benchmark)
	r.POST("/benchmark/chart", h.BenchmarkChart)

	r.POST("/share", h.CreateShare)
	r.GET("/share/:id", h.GetShare)

	r.GET("/offcuts", h.ListOffcuts)
	r.POST("/offcuts", h.AddOffcuts)
	r.GET("/offcuts/:id", h.GetOffcut)
	r.POST("/offcuts/reserve", h.ReserveOffcuts)
	r.POST("/offcuts/:id/use", h.transition(Stock.MarkUsed))
	r.POST("/offcuts/:id/release", h.transition(Stock.Release))
	r.POST("/offcuts/:id/discard", h.transition(Stock.Discard))
}

// GetDefaults returns the server's default optimization parameters.
// GET /api/params/defaults
func (h *Handler) GetDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, h.defaults)
}

// Optimize runs a job. With useOffcuts and no offcutStock in the body, the
// job draws on the server stock: matching offcuts are reserved for the run,
// consumed ones are marked used afterwards, the rest are released, and the
// plan's new offcuts are added to stock.
// POST /api/optimize
func (h *Handler) Optimize(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()

	var reserved []model.ReusableOffcut
	if req.UseOffcuts && len(req.OffcutStock) == 0 {
		req.Owner = "job-" + uuid.NewString()[:8]
		var err error
		if reserved, err = h.reserveFor(ctx, req.Pieces, req.Owner); err != nil {
			klog.ErrorS(err, "reserve offcuts", "owner", req.Owner)
			if err := h.settle(context.WithoutCancel(ctx), reserved, planner.Response{}); err != nil {
				klog.ErrorS(err, "release partial reservation", "owner", req.Owner)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot reserve offcuts"})
			return
		}
		req.OffcutStock = reserved
	}

	resp := planner.Run(ctx, req, h.defaults)

	if req.Owner != "" {
		if err := h.settle(context.WithoutCancel(ctx), reserved, resp); err != nil {
			klog.ErrorS(err, "settle offcut stock", "owner", req.Owner)
			resp.Warnings = append(resp.Warnings, "offcut stock could not be fully updated")
		}
	}
	c.JSON(statusFor(resp), resp)
}

// reserveFor reserves the stock offcuts that share a material with the pieces.
// A piece without material accepts any offcut, so then everything is reserved.
func (h *Handler) reserveFor(ctx context.Context, pieces []model.CuttingPiece, owner string) ([]model.ReusableOffcut, error) {
	materials := map[string]bool{}
	for _, p := range pieces {
		if p.MaterialID == "" {
			return h.stock.ReserveMatching(ctx, offcut.Criteria{}, owner)
		}
		materials[p.MaterialID] = true
	}
	var out []model.ReusableOffcut
	for m := range materials {
		got, err := h.stock.ReserveMatching(ctx, offcut.Criteria{MaterialID: m}, owner)
		if err != nil {
			return out, err
		}
		out = append(out, got...)
	}
	offcut.SortForConsumption(out)
	return out, nil
}

// settle marks consumed reservations used, releases the rest and stocks new offcuts.
func (h *Handler) settle(ctx context.Context, reserved []model.ReusableOffcut, resp planner.Response) error {
	consumed := map[string]bool{}
	for _, id := range resp.ConsumedOffcuts {
		consumed[id] = true
	}
	var errs []error
	for _, o := range reserved {
		var err error
		if resp.Success && consumed[o.ID] {
			err = h.stock.MarkUsed(ctx, o.ID)
		} else {
			err = h.stock.Release(ctx, o.ID)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("offcut %s: %w", o.ID, err))
		}
	}
	if resp.Success && len(resp.ReusableOffcuts) > 0 {
		if err := h.stock.Add(ctx, resp.ReusableOffcuts...); err != nil {
			errs = append(errs, fmt.Errorf("stock new offcuts: %w", err))
		}
	}
	return errors.Join(errs...)
}

func statusFor(resp planner.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	return errorStatus(resp.Error)
}

func errorStatus(err *model.OptimizationError) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.Kind {
	case model.ErrInvalidInput:
		return http.StatusBadRequest
	case model.ErrUnsatisfiable:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// runForExport optimizes the request body without touching the server stock.
// It writes the failure response itself and returns false when there is no plan.
func (h *Handler) runForExport(c *gin.Context) (planner.Response, bool) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return planner.Response{}, false
	}
	resp := planner.Run(c.Request.Context(), req, h.defaults)
	if !resp.Success {
		c.JSON(statusFor(resp), resp)
		return resp, false
	}
	return resp, true
}

// render runs the export and sends its bytes, as an attachment when filename is set.
func (h *Handler) render(c *gin.Context, contentType, filename string, write func(io.Writer, planner.Response) error) {
	resp, ok := h.runForExport(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, resp); err != nil {
		klog.ErrorS(err, "render export", "type", contentType)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if filename != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// POST /api/report
func (h *Handler) Report(c *gin.Context) {
	h.render(c, "text/plain; charset=utf-8", "", func(w io.Writer, r planner.Response) error {
		return export.WriteReport(w, *r.Plan, r.ReusableOffcuts)
	})
}

// POST /api/report/pdf
func (h *Handler) ReportPDF(c *gin.Context) {
	h.render(c, "application/pdf", "cutplan.pdf", func(w io.Writer, r planner.Response) error {
		return export.WritePDF(w, *r.Plan, r.Params)
	})
}

// POST /api/report/labels
func (h *Handler) ReportLabels(c *gin.Context) {
	h.render(c, "application/pdf", "labels.pdf", func(w io.Writer, r planner.Response) error {
		return export.WriteLabels(w, *r.Plan)
	})
}

// POST /api/report/dxf
func (h *Handler) ReportDXF(c *gin.Context) {
	h.render(c, "application/dxf", "cutplan.dxf", func(w io.Writer, r planner.Response) error {
		return export.WriteDXF(w, *r.Plan)
	})
}

// POST /api/report/xlsx
func (h *Handler) ReportXLSX(c *gin.Context) {
	h.render(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "cutplan.xlsx",
		func(w io.Writer, r planner.Response) error {
			return export.WriteXLSX(w, *r.Plan, r.ReusableOffcuts)
		})
}

// BenchmarkRequest asks for every strategy configuration to be run on one input.
type BenchmarkRequest struct {
	Pieces []model.CuttingPiece `json:"pieces"`
	Sheets []model.SourceSheet  `json:"sheets"`
	Params *model.ParamsPatch   `json:"params,omitempty"`
	Full   bool                 `json:"full"` // All configurations instead of the quick set
}

func (h *Handler) benchmark(c *gin.Context) ([]engine.ConfigResult, bool) {
	var req BenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return nil, false
	}
	configs := engine.QuickConfigs()
	if req.Full {
		configs = engine.FullConfigs()
	}
	params := req.Params.Apply(h.defaults)
	results, err := engine.NewComparator(params).RunBenchmark(c.Request.Context(), req.Pieces, req.Sheets, configs)
	if err != nil {
		var oe *model.OptimizationError
		if !errors.As(err, &oe) {
			oe = model.NewError(model.ErrInternal, "%v", err)
		}
		c.JSON(errorStatus(oe), gin.H{"error": oe})
		return nil, false
	}
	return results, true
}

// POST /api/benchmark
func (h *Handler) Benchmark(c *gin.Context) {
	results, ok := h.benchmark(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// POST /api/benchmark/chart
func (h *Handler) BenchmarkChart(c *gin.Context) {
	results, ok := h.benchmark(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteBenchmarkChart(&buf, results); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// CreateShare stores any JSON document (typically an optimize response) under a random ID.
// POST /api/share
func (h *Handler) CreateShare(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON document"})
		return
	}
	id, expiresAt, err := h.shares.Put(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "expiresAt": expiresAt, "url": "/api/share/" + id})
}

// GET /api/share/:id
func (h *Handler) GetShare(c *gin.Context) {
	payload, ok := h.shares.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "share not found or expired"})
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// ListOffcuts filters the stock by material, thickness, minLength, minWidth,
// rotate and state (comma separated, or "all").
// GET /api/offcuts
func (h *Handler) ListOffcuts(c *gin.Context) {
	crit, err := criteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := h.stock.List(c.Request.Context(), crit)
	if err != nil {
		h.stockError(c, err)
		return
	}
	if list == nil {
		list = []model.ReusableOffcut{}
	}
	c.JSON(http.StatusOK, gin.H{"offcuts": list, "totalArea": model.TotalOffcutArea(list)})
}

func criteriaFromQuery(c *gin.Context) (offcut.Criteria, error) {
	crit := offcut.Criteria{MaterialID: c.Query("material")}
	for key, dst := range map[string]*float64{
		"thickness": &crit.Thickness,
		"minLength": &crit.MinLength,
		"minWidth":  &crit.MinWidth,
	} {
		if v := c.Query(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return crit, fmt.Errorf("invalid %s %q", key, v)
			}
			*dst = f
		}
	}
	crit.AllowRotation = c.Query("rotate") == "true"
	switch states := c.Query("state"); states {
	case "":
	case "all":
		crit.States = []model.OffcutState{model.OffcutAvailable, model.OffcutReserved,
			model.OffcutUsed, model.OffcutReleased, model.OffcutDiscarded}
	default:
		for _, s := range strings.Split(states, ",") {
			crit.States = append(crit.States, model.OffcutState(strings.TrimSpace(s)))
		}
	}
	return crit, nil
}

// AddOffcuts stocks offcuts by hand, e.g. leftovers from jobs cut elsewhere.
// POST /api/offcuts
func (h *Handler) AddOffcuts(c *gin.Context) {
	var in []model.ReusableOffcut
	if err := c.ShouldBindJSON(&in); err != nil || len(in) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a non-empty list of offcuts"})
		return
	}
	for i := range in {
		if in[i].ID == "" {
			in[i].ID = model.NewOffcutID()
		}
		if in[i].Dimensions.Length <= 0 || in[i].Dimensions.Width <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("offcut %s has no size", in[i].ID)})
			return
		}
		if in[i].State != "" && !in[i].State.Allocatable() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("offcut %s: new stock must be available", in[i].ID)})
			return
		}
	}
	if err := h.stock.Add(c.Request.Context(), in...); err != nil {
		h.stockError(c, err)
		return
	}
	ids := make([]string, len(in))
	for i, o := range in {
		ids[i] = o.ID
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

// GET /api/offcuts/:id
func (h *Handler) GetOffcut(c *gin.Context) {
	o, err := h.stock.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.stockError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ReserveRequest reserves offcuts for an owner, all or nothing.
type ReserveRequest struct {
	IDs   []string `json:"ids" binding:"required,min=1"`
	Owner string   `json:"owner" binding:"required"`
}

// POST /api/offcuts/reserve
func (h *Handler) ReserveOffcuts(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids and owner are required"})
		return
	}
	if err := h.stock.Reserve(c.Request.Context(), req.IDs, req.Owner); err != nil {
		h.stockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserved": req.IDs, "owner": req.Owner})
}

// transition wraps a single-offcut state change as a handler returning the updated offcut.
func (h *Handler) transition(apply func(Stock, context.Context, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, id := c.Request.Context(), c.Param("id")
		if err := apply(h.stock, ctx, id); err != nil {
			h.stockError(c, err)
			return
		}
		o, err := h.stock.Get(ctx, id)
		if err != nil {
			h.stockError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func (h *Handler) stockError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, offcut.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, offcut.ErrNotAvailable), errors.Is(err, offcut.ErrInvalidTransition),
		errors.Is(err, offcut.ErrExists):
		status = http.StatusConflict
	default:
		klog.ErrorS(err, "offcut stock", "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
