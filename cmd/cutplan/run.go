package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/importer"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/planner"
	"github.com/piwi3910/cutplan/internal/project"
)

// jobFlags are the input flags shared by optimize and benchmark.
type jobFlags struct {
	config    *string
	in        *string
	pieces    *string
	sheets    *string
	catalogue *string
}

func addJobFlags(fs *flag.FlagSet) jobFlags {
	return jobFlags{
		config:    fs.String("config", "cutplan.toml", "configuration file for default parameters"),
		in:        fs.String("in", "", "job file or request JSON"),
		pieces:    fs.String("pieces", "", "cut list to import (.csv, .xlsx or .dxf), replaces the job's pieces"),
		sheets:    fs.String("sheets", "", "catalogue sheets as id=qty,..., replaces the job's sheets"),
		catalogue: fs.String("catalogue", project.DefaultCataloguePath(), "sheet catalogue"),
	}
}

// load assembles the request and the default parameters from the flags.
func (f jobFlags) load() (planner.Request, model.OptimizationParams, error) {
	var req planner.Request
	cfg, err := config.Load(*f.config)
	if err != nil {
		return req, model.OptimizationParams{}, err
	}

	if *f.in != "" {
		if req, err = readRequest(*f.in); err != nil {
			return req, cfg.Params, err
		}
	}
	if *f.pieces != "" {
		res := importPieces(*f.pieces)
		for _, w := range res.Warnings {
			klog.Warning(w)
		}
		if !res.OK() {
			return req, cfg.Params, fmt.Errorf("import %s: %s", *f.pieces, strings.Join(res.Errors, "; "))
		}
		req.Pieces = res.Pieces
	}
	if *f.sheets != "" {
		refs, err := parseSheetRefs(*f.sheets)
		if err != nil {
			return req, cfg.Params, err
		}
		cat, err := project.LoadCatalogue(*f.catalogue)
		if err != nil {
			return req, cfg.Params, err
		}
		if req.Sheets, err = project.ResolveCatalogueRefs(cat, refs); err != nil {
			return req, cfg.Params, err
		}
	}
	return req, cfg.Params, nil
}

// readRequest accepts a saved job or a bare request document.
func readRequest(path string) (planner.Request, error) {
	job, err := project.LoadJob(path)
	if err == nil {
		return job.Request, nil
	}
	if !errors.Is(err, project.ErrNoVersion) {
		return planner.Request{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return planner.Request{}, err
	}
	var req planner.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse request %s: %w", path, err)
	}
	return req, nil
}

func importPieces(path string) importer.Result {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return importer.ImportExcel(path)
	case ".dxf":
		return importer.ImportDXF(path)
	default:
		return importer.ImportCSV(path)
	}
}

func parseSheetRefs(s string) (map[string]int, error) {
	refs := map[string]int{}
	for _, part := range strings.Split(s, ",") {
		id, qty, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			qty = "0"
		}
		n, err := strconv.Atoi(qty)
		if err != nil || n < 0 || id == "" {
			return nil, fmt.Errorf("invalid sheet reference %q, want id=qty", part)
		}
		refs[id] = n
	}
	return refs, nil
}

func optimize(args []string) error {
	fs := newFlagSet("optimize")
	jf := addJobFlags(fs)
	format := fs.String("format", "text", "output format: text, json, pdf, labels, dxf or xlsx")
	out := fs.String("out", "", "output file (stdout for text and json when empty)")
	save := fs.String("save", "", "save the job and its plan to this file")
	smart := fs.Bool("smart", false, "try every algorithm and keep the best plan")
	iterations := fs.Bool("iterations", false, "search piece orders and keep the best plan")
	useOffcuts := fs.Bool("offcuts", false, "cut from the job's offcut stock first")
	fs.Parse(args)

	req, defaults, err := jf.load()
	if err != nil {
		return err
	}
	req.UseSmartOptimize = req.UseSmartOptimize || *smart
	req.UseIterations = req.UseIterations || *iterations
	req.UseOffcuts = req.UseOffcuts || *useOffcuts

	resp := planner.Run(context.Background(), req, defaults)
	for _, w := range resp.Warnings {
		klog.Warning(w)
	}
	if *save != "" {
		name := strings.TrimSuffix(filepath.Base(*save), filepath.Ext(*save))
		if err := project.SaveJob(*save, project.NewJob(name, req, &resp)); err != nil {
			return err
		}
	}
	if !resp.Success {
		if resp.Error != nil {
			return resp.Error
		}
		return errors.New(resp.Message)
	}
	klog.Info(resp.Message)
	return writePlan(*format, *out, resp)
}

func writePlan(format, out string, resp planner.Response) error {
	plan := *resp.Plan
	switch format {
	case "text":
		return toOutput(out, func(w io.Writer) error { return export.WriteReport(w, plan, resp.ReusableOffcuts) })
	case "json":
		return toOutput(out, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		})
	}
	if out == "" {
		return fmt.Errorf("-out is required for %s output", format)
	}
	switch format {
	case "pdf":
		return export.ExportPDF(out, plan, resp.Params)
	case "labels":
		return export.ExportLabels(out, plan)
	case "dxf":
		return export.ExportDXF(out, plan)
	case "xlsx":
		return export.ExportXLSX(out, plan, resp.ReusableOffcuts)
	}
	return fmt.Errorf("unknown format %q", format)
}

func toOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func benchmark(args []string) error {
	fs := newFlagSet("benchmark")
	jf := addJobFlags(fs)
	full := fs.Bool("full", false, "run every configuration instead of the quick set")
	chart := fs.String("chart", "", "write an HTML chart of the results to this file")
	fs.Parse(args)

	req, defaults, err := jf.load()
	if err != nil {
		return err
	}
	configs := engine.QuickConfigs()
	if *full {
		configs = engine.FullConfigs()
	}
	params := req.Params.Apply(defaults)
	results, err := engine.NewComparator(params).RunBenchmark(context.Background(), req.Pieces, req.Sheets, configs)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "rank\tconfiguration\tplaced\tsheets\tefficiency\ttime")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.1f%%\t%s\n", r.Rank, r.Config.Name, r.Placed, r.Sheets, r.Efficiency, r.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *chart != "" {
		return toOutput(*chart, func(w io.Writer) error { return export.WriteBenchmarkChart(w, results) })
	}
	return nil
}
