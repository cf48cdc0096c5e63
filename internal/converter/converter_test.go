package converter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/sift/internal/table"
)

// buildXLSX writes rows to the first sheet of a new workbook.
func buildXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Format
		wantErr  bool
	}{
		{"CSV", "data.csv", FormatCSV, false},
		{"Upper case", "DATA.CSV", FormatCSV, false},
		{"XLSX", "sales.xlsx", FormatXLSX, false},
		{"Dotted name", "q1.sales.xlsx", FormatXLSX, false},
		{"Legacy xls", "old.xls", "", true},
		{"No extension", "README", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	for input, expected := range map[string]Format{"csv": FormatCSV, "Excel": FormatXLSX, ".xlsx": FormatXLSX} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}

	_, err := ParseFormat("json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected rune
	}{
		{"Comma", "a,b,c\n1,2,3\n", ','},
		{"Semicolon", "a;b;c\n1,5;2;3\n", ';'},
		{"Tab", "a\tb\n1\t2\n", '\t'},
		{"Pipe", "a|b|c\n1|2|3\n", '|'},
		{"Single column", "a\n1\n", ','},
		{"Semicolons in comma text", "name,notes\nalice,a;b;c;d\nbob,e;f;g;h\n", ','},
		{"Quoted pipes", "id,label\n1,\"a|b|c\"\n2,\"d|e|f\"\n", ','},
		{"Comma inside semicolon file", "id;amount,usd\n1;10\n2;20\n", ';'},
		{"Quoted newline", "a;b\n\"x\ny\";2\n", ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sniffDelimiter(tt.input))
		})
	}
}

func TestParse_CSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFid;amount\n1;10\n1;10\n2;\n")

	tbl, err := Parse("data.csv", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amount"}, tbl.ColumnNames())
	assert.Equal(t, 3, tbl.Rows())
	assert.True(t, tbl.Column("amount").Cells[2].Missing)
}

func TestParse_CSVTextWithSemicolons(t *testing.T) {
	tbl, err := Parse("people.csv", []byte("name,notes\nalice,a;b;c;d\nbob,e;f;g;h\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "notes"}, tbl.ColumnNames())
	assert.Equal(t, [][]string{{"alice", "a;b;c;d"}, {"bob", "e;f;g;h"}}, tbl.Head(5))
}

func TestParse_CSVWindows1252(t *testing.T) {
	tbl, err := Parse("names.csv", []byte("name\ncaf\xe9\n"))
	require.NoError(t, err)
	assert.Equal(t, "café", tbl.Row(0)[0])
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"Unsupported extension", "notes.txt", []byte("a,b"), ErrUnsupportedFormat},
		{"Empty CSV", "empty.csv", []byte("  \n"), ErrEmptyFile},
		{"CSV bytes named xlsx", "fake.xlsx", []byte("a,b\n1,2\n"), ErrInvalidWorkbook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.file, tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.file, perr.File)
		})
	}
}

func TestParse_XLSX(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"region", "rep"},
		{"north", "Alice"},
		{"south", "Bob"},
	})

	tbl, err := Parse("sales.xlsx", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "rep"}, tbl.ColumnNames())
	assert.Equal(t, 2, tbl.Rows())
	assert.False(t, table.Chartable(tbl), "text-only workbook has nothing to chart")

	out, err := Export(tbl, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "region,rep\nnorth,Alice\nsouth,Bob\n", string(out))
	assert.Equal(t, "sales.csv", OutputName("sales.xlsx", FormatCSV))
	assert.Equal(t, "text/csv", MIMEType(FormatCSV))
}

func TestParse_XLSXFormattedCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"amount", "paid", "settled"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1234.5, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{2000.25, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), false}))

	// #,##0.00
	style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A2", "A3", style))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Parse("ledger.xlsx", buf.Bytes())
	require.NoError(t, err)

	amount := tbl.Column("amount")
	require.NotNil(t, amount)
	assert.Equal(t, table.KindNumeric, amount.Kind)
	assert.Equal(t, 2000.25, amount.Cells[1].Num)
	assert.Equal(t, table.KindTemporal, tbl.Column("paid").Kind)
	assert.Equal(t, [][]string{
		{"1234.5", "2024-03-15", "TRUE"},
		{"2000.25", "2024-04-01", "FALSE"},
	}, tbl.Head(5))
	assert.True(t, table.Chartable(tbl))
}

func TestHasDateTokens(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"h:mm AM/PM", true},
		{"#,##0.00", false},
		{`0.00" days"`, false},
		{"[Red]0.00", false},
		{`\d0`, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, hasDateTokens(tt.code), tt.code)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	src, err := Parse("data.csv", []byte("id,amount,label\n1,10,a\n2,,b\n3,12.5,\n"))
	require.NoError(t, err)

	for _, format := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			out, err := Export(src, format)
			require.NoError(t, err)

			back, err := Parse(OutputName("data.csv", format), out)
			require.NoError(t, err)

			assert.Equal(t, src.ColumnNames(), back.ColumnNames())
			assert.Equal(t, src.Head(10), back.Head(10))
		})
	}
}

func TestExport_ZeroColumns(t *testing.T) {
	src, err := Parse("data.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	empty, err := table.Select(src, nil)
	require.NoError(t, err)

	csvOut, err := Export(empty, FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, csvOut)

	xlsxOut, err := Export(empty, FormatXLSX)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(xlsxOut))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExport_UnknownFormat(t *testing.T) {
	src, err := Parse("data.csv", []byte("a\n1\n"))
	require.NoError(t, err)

	_, err = Export(src, Format("json"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "data.xlsx", OutputName("data.csv", FormatXLSX))
	assert.Equal(t, "csv.report.csv", OutputName("csv.report.xlsx", FormatCSV))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", MIMEType(FormatXLSX))
}
