package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// XLSXSink stores leads in a worksheet of a workbook on disk. The workbook
// is created on the first append when it does not exist yet.
type XLSXSink struct {
	path      string
	sheetName string

	mu sync.Mutex
}

// NewXLSX creates a sink writing to the given worksheet of the workbook at
// path. An existing file must be a readable workbook.
func NewXLSX(path, sheetName string) (*XLSXSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, eris.New("store: xlsx: empty path")
	}
	if sheetName == "" {
		sheetName = "leads"
	}
	s := &XLSXSink{path: path, sheetName: sheetName}

	if _, err := os.Stat(path); err == nil {
		if _, err := xlsx.OpenFile(path); err != nil {
			return nil, eris.Wrapf(err, "store: xlsx: open %s", path)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(err, "store: xlsx: stat %s", path)
	}
	return s, nil
}

// ExistingPhones implements Sink.
func (s *XLSXSink) ExistingPhones(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, sheet, err := s.load()
	if err != nil || f == nil || sheet == nil {
		return nil, err
	}

	var phones []string
	for i, row := range sheet.Rows {
		if i == 0 || row == nil || len(row.Cells) <= model.PhoneColumn {
			continue
		}
		if v := strings.TrimSpace(row.Cells[model.PhoneColumn].String()); v != "" {
			phones = append(phones, v)
		}
	}
	return phones, nil
}

// AppendLeads implements Sink.
func (s *XLSXSink) AppendLeads(_ context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		zap.L().Info("no leads to append", zap.String("sink", "xlsx"))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, sheet, err := s.load()
	if err != nil {
		return err
	}
	if f == nil {
		f = xlsx.NewFile()
	}
	if sheet == nil {
		sheet, err = f.AddSheet(s.sheetName)
		if err != nil {
			return eris.Wrapf(err, "store: xlsx: add sheet %s", s.sheetName)
		}
	}

	if len(sheet.Rows) == 0 {
		addRow(sheet, model.LeadHeader)
	}
	for _, l := range leads {
		addRow(sheet, l.Row())
	}

	if err := f.Save(s.path); err != nil {
		return eris.Wrapf(err, "store: xlsx: save %s", s.path)
	}

	zap.L().Info("leads appended", zap.String("sink", "xlsx"), zap.Int("count", len(leads)))
	return nil
}

// Close implements Sink.
func (s *XLSXSink) Close() error {
	return nil
}

// load opens the workbook. It returns a nil file when the path does not
// exist and a nil sheet when the worksheet is missing.
func (s *XLSXSink) load() (*xlsx.File, *xlsx.Sheet, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "store: xlsx: open %s", s.path)
	}
	return f, f.Sheet[s.sheetName], nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
