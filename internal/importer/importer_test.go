package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"github.com/yofu/dxf"

	"github.com/piwi3910/cutplan/internal/model"
)

// ─── Delimiter detection ───────────────────────────────────

func TestDetectCSVDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "Name,Length,Width,Qty\nShelf,600,300,2\n", ','},
		{"semicolon", "Name;Length;Width;Qty\nShelf;600;300;2\n", ';'},
		{"tab", "Name\tLength\tWidth\tQty\nShelf\t600\t300\t2\n", '\t'},
		{"pipe", "Name|Length|Width|Qty\nShelf|600|300|2\n", '|'},
	}
	for _, tt := range tests {
		if got := DetectCSVDelimiter([]byte(tt.data)); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

// ─── Column detection ──────────────────────────────────────

func TestDetectColumns_Headers(t *testing.T) {
	m, ok := DetectColumns([]string{"QTY", "Material", "Length", "Name", "Width", "Grain"})
	if !ok {
		t.Fatal("expected a header to be detected")
	}
	want := map[column]int{colQuantity: 0, colMaterial: 1, colLength: 2, colName: 3, colWidth: 4, colGrain: 5, colRotate: -1}
	for role, idx := range want {
		if m[role] != idx {
			t.Errorf("%s: expected column %d, got %d", columnNames[role], idx, m[role])
		}
	}
}

func TestDetectColumns_NoHeader(t *testing.T) {
	m, ok := DetectColumns([]string{"Shelf", "600", "300", "2"})
	if ok {
		t.Error("numeric row must not be taken as a header")
	}
	if m != positional {
		t.Errorf("expected positional mapping, got %v", m)
	}
}

// ─── CSV import ────────────────────────────────────────────

func TestImportCSVFromReader_WithHeaders(t *testing.T) {
	data := "Name,Length,Width,Qty,Grain,Material,Rotate\n" +
		"Door,800,600,1,length,oak,no\n" +
		"Shelf,600,350,4,,,\n"
	res := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(res.Pieces))
	}
	door := res.Pieces[0]
	if door.Name != "Door" || door.Dimensions != (model.Dimensions{Length: 800, Width: 600}) || door.Quantity != 1 {
		t.Errorf("unexpected door: %+v", door)
	}
	if !door.HasGrain || door.GrainDirection != model.GrainAlongLength {
		t.Errorf("expected grain along length, got %v/%q", door.HasGrain, door.GrainDirection)
	}
	if door.MaterialID != "oak" {
		t.Errorf("expected material oak, got %q", door.MaterialID)
	}
	if door.CanRotate {
		t.Error("rotate=no must clear CanRotate")
	}
	if shelf := res.Pieces[1]; shelf.HasGrain || !shelf.CanRotate || shelf.Quantity != 4 {
		t.Errorf("unexpected shelf: %+v", shelf)
	}
	if door.ID == "" || door.ID == res.Pieces[1].ID {
		t.Error("each imported piece needs its own ID")
	}
}

func TestImportCSVFromReader_WithoutHeaders(t *testing.T) {
	res := ImportCSVFromReader(strings.NewReader("Shelf,600,300,2\nSide,720,560,2\n"), ',')
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Pieces) != 2 || res.Pieces[1].Name != "Side" {
		t.Errorf("unexpected pieces: %+v", res.Pieces)
	}
}

func TestImportCSVFromReader_UnknownHeaderSkipped(t *testing.T) {
	res := ImportCSVFromReader(strings.NewReader("Bauteil,Lang,Breit,Anzahl\nShelf,600,300,2\n"), ',')
	if len(res.Pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d (errors %v)", len(res.Pieces), res.Errors)
	}
}

func TestImportCSVFromReader_RowErrors(t *testing.T) {
	data := "Name,Length,Width,Qty\n" +
		"ok,600,300,1\n" +
		"bad-length,abc,300,1\n" +
		"bad-qty,600,300,x\n" +
		"negative,-5,300,1\n" +
		"zero-qty,600,300,0\n" +
		"missing,,300,1\n"
	res := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(res.Pieces) != 1 {
		t.Errorf("expected 1 valid piece, got %d", len(res.Pieces))
	}
	if len(res.Errors) != 5 {
		t.Fatalf("expected 5 errors, got %d: %v", len(res.Errors), res.Errors)
	}
	if !strings.Contains(res.Errors[0], "line 3") || !strings.Contains(res.Errors[0], "length") {
		t.Errorf("error should name the line and field: %q", res.Errors[0])
	}
	if res.OK() {
		t.Error("a result with errors is not OK")
	}
}

func TestImportCSVFromReader_MissingRequiredColumn(t *testing.T) {
	res := ImportCSVFromReader(strings.NewReader("Name,Length,Qty\nShelf,600,2\n"), ',')
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "width") {
		t.Errorf("expected missing width error, got %v", res.Errors)
	}
}

func TestImportCSVFromReader_EmptyRowsAndLabels(t *testing.T) {
	res := ImportCSVFromReader(strings.NewReader("Name,Length,Width,Qty\n\n,600,300,1\n  ,  ,  ,  \n"), ',')
	if len(res.Pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(res.Pieces))
	}
	if res.Pieces[0].Name != "Piece 1" {
		t.Errorf("expected generated name, got %q", res.Pieces[0].Name)
	}
}

func TestImportCSVFromReader_DecimalComma(t *testing.T) {
	res := ImportCSVFromReader(strings.NewReader("Name;Length;Width;Qty\nA;600,5;300.25;1\n"), ';')
	if len(res.Pieces) != 1 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if d := res.Pieces[0].Dimensions; d.Length != 600.5 || d.Width != 300.25 {
		t.Errorf("unexpected dimensions %v", d)
	}
}

func TestImportCSVFromReader_UnknownValuesWarn(t *testing.T) {
	res := ImportCSVFromReader(strings.NewReader("Name,Length,Width,Qty,Grain,Rotate\nA,600,300,1,diagonal,maybe\n"), ',')
	if len(res.Pieces) != 1 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	// header warning plus one per unknown value
	if len(res.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", res.Warnings)
	}
	if res.Pieces[0].HasGrain || !res.Pieces[0].CanRotate {
		t.Error("unknown values must fall back to defaults")
	}
}

func TestParseGrain(t *testing.T) {
	tests := []struct {
		in   string
		axis model.GrainAxis
		has  bool
		ok   bool
	}{
		{"", "", false, true},
		{"None", "", false, true},
		{"length", model.GrainAlongLength, true, true},
		{"H", model.GrainAlongLength, true, true},
		{" width ", model.GrainAlongWidth, true, true},
		{"vertical", model.GrainAlongWidth, true, true},
		{"diagonal", "", false, false},
	}
	for _, tt := range tests {
		axis, has, ok := ParseGrain(tt.in)
		if axis != tt.axis || has != tt.has || ok != tt.ok {
			t.Errorf("ParseGrain(%q) = %q,%v,%v want %q,%v,%v", tt.in, axis, has, ok, tt.axis, tt.has, tt.ok)
		}
	}
}

func TestImportCSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.csv")
	if err := os.WriteFile(path, []byte("Name;Length;Width;Qty\nShelf;600;300;2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := ImportCSV(path)
	if len(res.Pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d: %v", len(res.Pieces), res.Errors)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "semicolon") {
		t.Errorf("expected delimiter warning first, got %v", res.Warnings)
	}
}

func TestImportCSV_MissingAndEmpty(t *testing.T) {
	if res := ImportCSV(filepath.Join(t.TempDir(), "nope.csv")); len(res.Errors) != 1 {
		t.Errorf("expected open error, got %v", res.Errors)
	}
	if res := ImportCSVData([]byte("  \n")); len(res.Errors) != 1 {
		t.Errorf("expected empty error, got %v", res.Errors)
	}
}

// ─── Excel import ──────────────────────────────────────────

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pieces.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, ref, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestImportExcel_WithHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"Width", "Length", "Label", "Quantity", "Grain"},
		{300, 600, "Shelf", 2, "width"},
		{600, 800, "Door", 1, ""},
	})
	res := ImportExcel(path)

	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(res.Pieces))
	}
	shelf := res.Pieces[0]
	if shelf.Name != "Shelf" || shelf.Dimensions.Length != 600 || shelf.Dimensions.Width != 300 {
		t.Errorf("unexpected shelf %+v", shelf)
	}
	if shelf.GrainDirection != model.GrainAlongWidth {
		t.Errorf("expected grain along width, got %q", shelf.GrainDirection)
	}
}

func TestImportExcelReader(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{{"Shelf", 600, 300, 2}})
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	res := ImportExcelReader(f)
	if len(res.Pieces) != 1 || res.Pieces[0].Quantity != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestImportExcel_FileNotFound(t *testing.T) {
	if res := ImportExcel(filepath.Join(t.TempDir(), "missing.xlsx")); len(res.Errors) == 0 {
		t.Error("expected an error for a missing workbook")
	}
}

// ─── DXF import ────────────────────────────────────────────

func TestImportDXF_LinesAndCircles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.dxf")
	d := dxf.NewDrawing()
	// 400 x 250 rectangle drawn as four loose lines, one reversed
	d.Line(0, 0, 0, 400, 0, 0)
	d.Line(400, 0, 0, 400, 250, 0)
	d.Line(0, 250, 0, 400, 250, 0)
	d.Line(0, 250, 0, 0, 0, 0)
	// open polyline, dropped
	d.Line(1000, 0, 0, 1100, 0, 0)
	d.Circle(2000, 2000, 0, 50)
	if err := d.SaveAs(path); err != nil {
		t.Fatalf("save drawing: %v", err)
	}

	res := ImportDXF(path)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(res.Pieces))
	}
	var rect, disc bool
	for _, p := range res.Pieces {
		switch p.Dimensions {
		case model.Dimensions{Length: 400, Width: 250}:
			rect = true
		case model.Dimensions{Length: 100, Width: 100}:
			disc = true
		}
	}
	if !rect || !disc {
		t.Errorf("expected a 400x250 and a 100x100 piece, got %+v", res.Pieces)
	}
}

func TestImportDXF_FileNotFound(t *testing.T) {
	if res := ImportDXF(filepath.Join(t.TempDir(), "missing.dxf")); len(res.Errors) == 0 {
		t.Error("expected an error for a missing drawing")
	}
}

func TestChainSegments_LargestFirst(t *testing.T) {
	square := func(x, y, s float64) []segment {
		a, b, c, d := point{x, y}, point{x + s, y}, point{x + s, y + s}, point{x, y + s}
		return []segment{{a, b}, {b, c}, {c, d}, {d, a}}
	}
	segs := append(square(0, 0, 10), square(100, 100, 50)...)
	loops := chainSegments(segs, 0.01)
	if len(loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(loops))
	}
	if loops[0].area() != 2500 || loops[1].area() != 100 {
		t.Errorf("unexpected areas %v, %v", loops[0].area(), loops[1].area())
	}
}
