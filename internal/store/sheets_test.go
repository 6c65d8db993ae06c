package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu sync.Mutex

	title     string
	header    [][]any
	phones    [][]any
	headerErr bool
	appendErr bool

	appended [][]any
	appendQS string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/v4/spreadsheets/sheet-1":
		if f.title == "" {
			_, _ = w.Write([]byte(`{"sheets":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{map[string]any{"properties": map[string]any{"title": f.title}}},
		})
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!1:1"):
		if f.headerErr {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.header})
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!E:E"):
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.phones})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		if f.appendErr {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
			return
		}
		var body sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		f.appendQS = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"updates":{}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
	}
}

func newTestSheets(t *testing.T, fake *fakeSheets) (*SheetsSink, error) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewSheets(context.Background(), "sheet-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
}

func TestSheets_ResolvesFirstWorksheet(t *testing.T) {
	s, err := newTestSheets(t, &fakeSheets{title: "Leads"})
	require.NoError(t, err)
	assert.Equal(t, "Leads", s.Title())
	assert.Equal(t, "'Leads'!A1", s.a1("A1"))
}

func TestSheets_NoWorksheets(t *testing.T) {
	_, err := newTestSheets(t, &fakeSheets{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no worksheets")
}

func TestSheets_ExistingPhonesSkipsHeaderAndBlanks(t *testing.T) {
	fake := &fakeSheets{
		title:  "Leads",
		phones: [][]any{{"telefone"}, {"+5519991234567"}, {}, {"  "}, {"+5511912345678"}},
	}
	s, err := newTestSheets(t, fake)
	require.NoError(t, err)

	phones, err := s.ExistingPhones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"+5519991234567", "+5511912345678"}, phones)
}

func TestSheets_AppendWritesHeaderWhenMissing(t *testing.T) {
	fake := &fakeSheets{title: "Leads"}
	s, err := newTestSheets(t, fake)
	require.NoError(t, err)

	require.NoError(t, s.AppendLeads(context.Background(), sampleLeads()))

	require.Len(t, fake.appended, 3)
	assert.Equal(t, "nome", fake.appended[0][0])
	assert.Equal(t, "Clínica Sorriso", fake.appended[1][0])
	assert.Equal(t, "85", fake.appended[1][11])
	assert.Contains(t, fake.appendQS, "valueInputOption=USER_ENTERED")
	assert.Contains(t, fake.appendQS, "insertDataOption=INSERT_ROWS")
}

func TestSheets_AppendSkipsExistingHeader(t *testing.T) {
	fake := &fakeSheets{title: "Leads", header: [][]any{{"nome", "nicho"}}}
	s, err := newTestSheets(t, fake)
	require.NoError(t, err)

	require.NoError(t, s.AppendLeads(context.Background(), sampleLeads()))
	require.Len(t, fake.appended, 2)
	assert.Equal(t, "Clínica Sorriso", fake.appended[0][0])
}

func TestSheets_HeaderCheckFailureStillAppends(t *testing.T) {
	fake := &fakeSheets{title: "Leads", headerErr: true}
	s, err := newTestSheets(t, fake)
	require.NoError(t, err)

	require.NoError(t, s.AppendLeads(context.Background(), sampleLeads()))
	assert.Len(t, fake.appended, 2)
}

func TestSheets_AppendError(t *testing.T) {
	fake := &fakeSheets{title: "Leads", header: [][]any{{"nome"}}, appendErr: true}
	s, err := newTestSheets(t, fake)
	require.NoError(t, err)

	err = s.AppendLeads(context.Background(), sampleLeads())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append 2 leads")
}

func TestSheets_EmptyAppendIsNoop(t *testing.T) {
	fake := &fakeSheets{title: "Leads"}
	s, err := newTestSheets(t, fake)
	require.NoError(t, err)

	require.NoError(t, s.AppendLeads(context.Background(), nil))
	assert.Empty(t, fake.appended)
}
