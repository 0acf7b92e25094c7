// Package importer reads piece lists from CSV, Excel and DXF files.
// Columns are matched by header name, case-insensitively, with a positional fallback.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// Result holds the pieces read from a file plus per-row problems.
// A row with an error is skipped; a row with a warning is still imported.
type Result struct {
	Pieces   []model.CuttingPiece `json:"pieces"`
	Errors   []string             `json:"errors"`
	Warnings []string             `json:"warnings"`
}

// OK reports whether at least one piece was read and nothing failed.
func (r Result) OK() bool {
	return len(r.Errors) == 0 && len(r.Pieces) > 0
}

// column is a semantic role of a piece-list column.
type column int

const (
	colName column = iota
	colLength
	colWidth
	colQuantity
	colGrain
	colMaterial
	colRotate
	numColumns
)

// ColumnMapping holds the index of each role in a row, or -1 when absent.
type ColumnMapping [numColumns]int

var columnNames = [numColumns]string{"name", "length", "width", "quantity", "grain", "material", "rotate"}

// headerAliases lists the accepted header spellings per role, all lowercase.
var headerAliases = [numColumns][]string{
	colName:     {"name", "label", "part", "part name", "description", "desc", "piece", "item"},
	colLength:   {"length", "len", "l", "x"},
	colWidth:    {"width", "w", "y", "height", "h"},
	colQuantity: {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	colGrain:    {"grain", "grain direction", "grain dir", "direction"},
	colMaterial: {"material", "mat", "material id"},
	colRotate:   {"rotate", "can rotate", "rotation", "rotatable"},
}

// positional is the mapping used when the first row is not a header.
var positional = ColumnMapping{0, 1, 2, 3, 4, 5, 6}

// DetectCSVDelimiter picks the delimiter among comma, semicolon, tab and pipe
// that splits the most rows into the same number of columns as the first.
func DetectCSVDelimiter(data []byte) rune {
	best, bestScore := ',', 0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		records, err := readCSV(bytes.NewReader(data), delim)
		if err != nil || len(records) == 0 {
			continue
		}
		cols := len(records[0])
		if cols < 2 {
			continue
		}
		consistent := 0
		for _, row := range records {
			if len(row) == cols {
				consistent++
			}
		}
		if score := consistent*10 + cols; score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}

// DetectColumns maps a header row to column roles. The second return is false
// when no cell matched a known header, in which case the positional mapping is returned.
func DetectColumns(row []string) (ColumnMapping, bool) {
	var m ColumnMapping
	for i := range m {
		m[i] = -1
	}
	found := false
	for i, cell := range row {
		norm := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			if m[role] != -1 {
				continue
			}
			for _, alias := range aliases {
				if norm == alias {
					m[role] = i
					found = true
					break
				}
			}
		}
	}
	if !found {
		return positional, false
	}
	return m, true
}

// ParseGrain converts a grain cell to a grain axis. An empty or "none" cell means no grain.
func ParseGrain(s string) (model.GrainAxis, bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n", "-":
		return "", false, true
	case "length", "l", "horizontal", "h", "x":
		return model.GrainAlongLength, true, true
	case "width", "w", "vertical", "v", "y":
		return model.GrainAlongWidth, true, true
	default:
		return "", false, false
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "x":
		return true, true
	case "no", "n", "false", "0", "-":
		return false, true
	}
	return false, false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow reads one piece. It returns an error message for a rejected row
// and a list of warnings for fields that fell back to defaults.
func parseRow(row []string, m ColumnMapping, where string, n int) (model.CuttingPiece, string, []string) {
	num := func(role column) (float64, string) {
		s := cell(row, m[role])
		if s == "" {
			return 0, fmt.Sprintf("%s: missing %s", where, columnNames[role])
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			return 0, fmt.Sprintf("%s: invalid %s %q", where, columnNames[role], s)
		}
		return v, ""
	}

	length, msg := num(colLength)
	if msg != "" {
		return model.CuttingPiece{}, msg, nil
	}
	width, msg := num(colWidth)
	if msg != "" {
		return model.CuttingPiece{}, msg, nil
	}
	qtyStr := cell(row, m[colQuantity])
	if qtyStr == "" {
		return model.CuttingPiece{}, fmt.Sprintf("%s: missing quantity", where), nil
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return model.CuttingPiece{}, fmt.Sprintf("%s: invalid quantity %q", where, qtyStr), nil
	}
	if length <= 0 || width <= 0 || qty <= 0 {
		return model.CuttingPiece{}, fmt.Sprintf("%s: length, width and quantity must be positive", where), nil
	}

	name := cell(row, m[colName])
	if name == "" {
		name = fmt.Sprintf("Piece %d", n+1)
	}
	p := model.NewPiece(name, length, width, qty)
	p.MaterialID = cell(row, m[colMaterial])

	var warnings []string
	if g := cell(row, m[colGrain]); g != "" {
		axis, has, ok := ParseGrain(g)
		if ok {
			p.HasGrain, p.GrainDirection = has, axis
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: unknown grain %q, assuming none", where, g))
		}
	}
	if r := cell(row, m[colRotate]); r != "" {
		if v, ok := parseBool(r); ok {
			p.CanRotate = v
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: unknown rotate value %q, assuming yes", where, r))
		}
	}
	return p, "", warnings
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readCSV(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

// ImportCSV reads pieces from a CSV file, detecting the delimiter.
func ImportCSV(path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("cannot open file: %v", err)}}
	}
	return ImportCSVData(data)
}

// ImportCSVData reads pieces from CSV content, detecting the delimiter.
func ImportCSVData(data []byte) Result {
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{Errors: []string{"file is empty"}}
	}
	delim := DetectCSVDelimiter(data)
	var warnings []string
	if delim != ',' {
		name := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delim]
		warnings = append(warnings, fmt.Sprintf("detected %s delimiter", name))
	}
	res := ImportCSVFromReader(bytes.NewReader(data), delim)
	res.Warnings = append(warnings, res.Warnings...)
	return res
}

// ImportCSVFromReader reads pieces from CSV with a known delimiter.
func ImportCSVFromReader(r io.Reader, delim rune) Result {
	records, err := readCSV(r, delim)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("cannot read CSV: %v", err)}}
	}
	if len(records) == 0 {
		return Result{Errors: []string{"file is empty"}}
	}
	return importRows(records, "line")
}

// ImportExcel reads pieces from the first worksheet of an Excel file.
func ImportExcel(path string) Result {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

// ImportExcelReader reads pieces from Excel content.
func ImportExcelReader(r io.Reader) Result {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("cannot open Excel file: %v", err)}}
	}
	defer f.Close()
	return importWorkbook(f)
}

func importWorkbook(f *excelize.File) Result {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{Errors: []string{"workbook has no sheets"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err)}}
	}
	if len(rows) == 0 {
		return Result{Errors: []string{"sheet is empty"}}
	}
	return importRows(rows, "row")
}

func importRows(rows [][]string, prefix string) Result {
	res := Result{Pieces: []model.CuttingPiece{}}

	m, header := DetectColumns(rows[0])
	start := 0
	switch {
	case header:
		start = 1
		res.Warnings = append(res.Warnings, "detected header row, skipping")
		var missing []string
		for _, role := range []column{colLength, colWidth, colQuantity} {
			if m[role] == -1 {
				missing = append(missing, columnNames[role])
			}
		}
		if len(missing) > 0 {
			res.Errors = append(res.Errors, "required columns not found in header: "+strings.Join(missing, ", "))
			return res
		}
	case len(rows[0]) >= 3:
		// An unrecognised header still has a non-numeric length cell.
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][colLength]), 64); err != nil {
			start = 1
			res.Warnings = append(res.Warnings, "detected header row, skipping")
		}
	}

	for i := start; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		where := fmt.Sprintf("%s %d", prefix, i+1)
		p, msg, warnings := parseRow(rows[i], m, where, len(res.Pieces))
		if msg != "" {
			res.Errors = append(res.Errors, msg)
			continue
		}
		res.Warnings = append(res.Warnings, warnings...)
		res.Pieces = append(res.Pieces, p)
	}
	klog.V(2).InfoS("imported piece list", "pieces", len(res.Pieces), "errors", len(res.Errors))
	return res
}
