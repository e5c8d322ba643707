package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(url string) *models.SiteRecord {
	return &models.SiteRecord{
		ID:                       "ZXhhbXBsZS5jb20=",
		URL:                      url,
		DomainName:               "example.com",
		ExtractionTime:           time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		CookiesNoConsent:         []models.CapturedCookie{{Name: "sid", Domain: "example.com", ExpiresInDays: -1}},
		TrackingDomainsNoConsent: []string{"tracker.io"},
		ConsentManager:           &models.ConsentResult{RuleID: "generic", Outcome: models.ConsentClicked},
		MetaTags:                 map[string]string{"description": "Example"},
		Status:                   models.SiteStatusSuccess,
		StatusMessage:            "ok",
	}
}

func TestRowValues(t *testing.T) {
	values, err := rowValues(sampleRecord("http://example.com"))

	require.NoError(t, err)
	require.Len(t, values, len(Columns))
	assert.Equal(t, "ZXhhbXBsZS5jb20=", values[0])
	assert.Equal(t, "2024-03-10T12:00:00Z", values[3])
	assert.Nil(t, values[4], "unset cookies_all is NULL")
	assert.Equal(t, `[{"name":"sid","domain":"example.com","expires_days":-1}]`, values[5])
	assert.Equal(t, `["tracker.io"]`, values[9])
	assert.Equal(t, `{"rule_id":"generic","outcome":"clicked"}`, values[10])
	assert.Equal(t, `{"description":"Example"}`, values[12])
	assert.Equal(t, "success", values[14])
	assert.Equal(t, "ok", values[15])
}

func TestJSONLSink_Write(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLSink(&buf)

	err := s.Write(context.Background(), []*models.SiteRecord{
		sampleRecord("http://a.example"),
		sampleRecord("http://b.example"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, "http://b.example", decoded["url"])
	assert.Equal(t, "success", decoded["status"])
	assert.Contains(t, decoded, "extraction_datetime")
}

func TestJSONLFileSink_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.jsonl")

	for _, url := range []string{"http://a.example", "http://b.example"} {
		s, err := NewJSONLFileSink(path)
		require.NoError(t, err)
		require.NoError(t, s.Write(context.Background(), []*models.SiteRecord{sampleRecord(url)}))
		require.NoError(t, s.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var count int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	assert.Equal(t, 2, count)
}

type fakeBatchResults struct {
	failAt int
	calls  int
	closed bool
}

func (r *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	r.calls++
	if r.calls == r.failAt {
		return pgconn.CommandTag{}, errors.New("duplicate key")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }

func (r *fakeBatchResults) QueryRow() pgx.Row { return nil }

func (r *fakeBatchResults) Close() error {
	r.closed = true
	return nil
}

type fakePool struct {
	execs   []string
	batches []*pgx.Batch
	results *fakeBatchResults
	closed  bool
}

func (p *fakePool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (p *fakePool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	p.batches = append(p.batches, b)
	return p.results
}

func (p *fakePool) Close() { p.closed = true }

func TestPostgresSink_CreateTable(t *testing.T) {
	p := &fakePool{}
	s := newPostgresSink(p, "crawl_results")

	require.NoError(t, s.createTableIfNotExists(context.Background()))

	require.Len(t, p.execs, 1)
	assert.Contains(t, p.execs[0], "CREATE TABLE IF NOT EXISTS crawl_results (id TEXT, url TEXT")
	assert.Contains(t, p.execs[0], "status_msg TEXT)")
}

func TestPostgresSink_WriteBatch(t *testing.T) {
	p := &fakePool{results: &fakeBatchResults{}}
	s := newPostgresSink(p, "crawl_results")

	err := s.Write(context.Background(), []*models.SiteRecord{
		sampleRecord("http://a.example"),
		sampleRecord("http://b.example"),
	})

	require.NoError(t, err)
	require.Len(t, p.batches, 1)
	require.Equal(t, 2, p.batches[0].Len())

	queued := p.batches[0].QueuedQueries[1]
	assert.True(t, strings.HasPrefix(queued.SQL, "INSERT INTO crawl_results (id, url, domain_name"))
	assert.Contains(t, queued.SQL, "$16)")
	assert.Equal(t, "http://b.example", queued.Arguments[1])
	assert.True(t, p.results.closed)
}

func TestPostgresSink_WriteFailure(t *testing.T) {
	p := &fakePool{results: &fakeBatchResults{failAt: 2}}
	s := newPostgresSink(p, "crawl_results")

	err := s.Write(context.Background(), []*models.SiteRecord{
		sampleRecord("http://a.example"),
		sampleRecord("http://b.example"),
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.True(t, p.results.closed)
}

func TestPostgresSink_EmptyWindow(t *testing.T) {
	p := &fakePool{}
	s := newPostgresSink(p, "crawl_results")

	require.NoError(t, s.Write(context.Background(), nil))
	assert.Empty(t, p.batches)

	require.NoError(t, s.Close())
	assert.True(t, p.closed)
}

type failingSink struct{ closeErr error }

func (f *failingSink) Write(ctx context.Context, records []*models.SiteRecord) error {
	return errors.New("sink unavailable")
}

func (f *failingSink) Close() error { return f.closeErr }

func TestMulti(t *testing.T) {
	first := NewCollector()
	second := NewCollector()
	m := NewMulti(first, second)

	records := []*models.SiteRecord{sampleRecord("http://a.example")}
	require.NoError(t, m.Write(context.Background(), records))

	assert.Equal(t, records, first.Records())
	assert.Equal(t, records, second.Records())
	assert.NoError(t, m.Close())
}

func TestMulti_StopsOnFailure(t *testing.T) {
	after := NewCollector()
	m := NewMulti(&failingSink{closeErr: errors.New("close failed")}, after)

	err := m.Write(context.Background(), []*models.SiteRecord{sampleRecord("http://a.example")})

	assert.Error(t, err)
	assert.Empty(t, after.Records())
	assert.EqualError(t, m.Close(), "close failed")
}
