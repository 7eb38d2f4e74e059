package xlsximport

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Parser reads tabular rows from the first sheet of an xlsx workbook
type Parser struct {
	file      *excelize.File
	sheetName string
	trimSpace bool
	headers   []string
	headerMap map[string]int
	rows      [][]string
}

// ParserOption is a functional option for Parser configuration
type ParserOption func(*Parser)

// WithSheetName selects a sheet instead of the first one
func WithSheetName(name string) ParserOption {
	return func(p *Parser) {
		p.sheetName = name
	}
}

// WithTrimSpace controls trimming of cell values (default on)
func WithTrimSpace(trim bool) ParserOption {
	return func(p *Parser) {
		p.trimSpace = trim
	}
}

// NewParser opens a workbook from a reader and reads its header row
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return newParser(file, opts...)
}

// NewParserFromFile opens a workbook from a path and reads its header row
func NewParserFromFile(path string, opts ...ParserOption) (*Parser, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return newParser(file, opts...)
}

func newParser(file *excelize.File, opts ...ParserOption) (*Parser, error) {
	parser := &Parser{
		file:      file,
		trimSpace: true,
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(parser)
	}

	defer file.Close()

	if parser.sheetName == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoSheet
		}
		parser.sheetName = sheets[0]
	}

	rows, err := file.GetRows(parser.sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", parser.sheetName, err)
	}
	if len(rows) == 0 {
		return nil, ErrMissingHeader
	}

	for i, h := range rows[0] {
		header := h
		if parser.trimSpace {
			header = strings.TrimSpace(header)
		}
		parser.headers = append(parser.headers, header)
		if header != "" {
			parser.headerMap[header] = i
		}
	}
	if len(parser.headerMap) == 0 {
		return nil, ErrMissingHeader
	}

	parser.rows = rows[1:]

	return parser, nil
}

// SheetName returns the sheet being read
func (p *Parser) SheetName() string {
	return p.sheetName
}

// Headers returns the parsed header names
func (p *Parser) Headers() []string {
	return p.headers
}

// HeaderMap returns a map of header name to column index
func (p *Parser) HeaderMap() map[string]int {
	return p.headerMap
}

// ValidateHeaders checks that required headers exist, returning the
// names of any that are missing.
func (p *Parser) ValidateHeaders(required []string) []string {
	var missing []string
	for _, req := range required {
		if _, ok := p.headerMap[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

// Row represents one data row with its spreadsheet line number
type Row struct {
	// LineNumber is the 1-based line in the sheet (header is line 1)
	LineNumber int
	// Data maps header name to cell value
	Data map[string]string
}

// Get returns the value for a header, empty when absent
func (r Row) Get(header string) string {
	return r.Data[header]
}

// ReadAllRows returns every non-empty data row
func (p *Parser) ReadAllRows() ([]Row, error) {
	result := make([]Row, 0, len(p.rows))
	for i, cells := range p.rows {
		data := make(map[string]string, len(p.headerMap))
		empty := true
		for header, col := range p.headerMap {
			var value string
			if col < len(cells) {
				value = cells[col]
				if p.trimSpace {
					value = strings.TrimSpace(value)
				}
			}
			data[header] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		result = append(result, Row{
			// header occupies line 1
			LineNumber: i + 2,
			Data:       data,
		})
	}

	if len(result) == 0 {
		return nil, ErrEmptyWorkbook
	}

	return result, nil
}
