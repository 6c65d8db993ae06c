package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sells-group/prospect-cli/internal/model"
)

const valueInputUserEntered = "USER_ENTERED"

// SheetsSink stores leads in the first worksheet of a Google spreadsheet.
type SheetsSink struct {
	svc           *sheets.Service
	spreadsheetID string
	title         string
}

// NewSheets connects to a spreadsheet and resolves its first worksheet.
// Authentication comes from opts, typically option.WithCredentialsFile.
func NewSheets(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "store: sheets: create service")
	}

	ss, err := svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrapf(err, "store: sheets: open spreadsheet %s", spreadsheetID)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return nil, eris.Errorf("store: sheets: spreadsheet %s has no worksheets", spreadsheetID)
	}

	return &SheetsSink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		title:         ss.Sheets[0].Properties.Title,
	}, nil
}

// Title returns the worksheet title leads are written to.
func (s *SheetsSink) Title() string {
	return s.title
}

// ExistingPhones implements Sink by reading the phone column.
func (s *SheetsSink) ExistingPhones(ctx context.Context) ([]string, error) {
	col := xlsx.ColIndexToLetters(model.PhoneColumn)
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, s.a1(col+":"+col)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrap(err, "store: sheets: read phones")
	}

	var phones []string
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(row[0])); v != "" {
			phones = append(phones, v)
		}
	}
	return phones, nil
}

// AppendLeads implements Sink. A failed header check is logged and the
// append still proceeds.
func (s *SheetsSink) AppendLeads(ctx context.Context, leads []model.Lead) error {
	log := zap.L().With(zap.String("sink", "sheets"), zap.String("worksheet", s.title))
	if len(leads) == 0 {
		log.Info("no leads to append")
		return nil
	}

	rows := make([][]any, 0, len(leads)+1)

	hasHeader, err := s.hasHeader(ctx)
	if err != nil {
		log.Warn("header check failed", zap.Error(err))
	} else if !hasHeader {
		rows = append(rows, toCells(model.LeadHeader))
	}

	for _, l := range leads {
		rows = append(rows, toCells(l.Row()))
	}

	_, err = s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.a1("A1"), &sheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrapf(err, "store: sheets: append %d leads", len(leads))
	}

	log.Info("leads appended", zap.Int("count", len(leads)))
	return nil
}

// Close implements Sink.
func (s *SheetsSink) Close() error {
	return nil
}

func (s *SheetsSink) hasHeader(ctx context.Context) (bool, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return false, eris.Wrap(err, "store: sheets: read header")
	}
	return len(resp.Values) > 0 && len(resp.Values[0]) > 0, nil
}

// a1 qualifies a range with the quoted worksheet title.
func (s *SheetsSink) a1(rng string) string {
	return "'" + strings.ReplaceAll(s.title, "'", "''") + "'!" + rng
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
