package types

// FileData is the raw string grid read from an uploaded file before any
// type inference happens.
type FileData struct {
	Headers []string
	Rows    [][]string
}

type ExportResult struct {
	InputFile  string
	OutputFile string
	Format     string
	MIMEType   string
	Columns    []string
	Rows       int
	Size       int
}
