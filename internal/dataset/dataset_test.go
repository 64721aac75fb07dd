package dataset

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightcli/internal/config"
)

const loansCSV = `applicant_income,loan_amount,credit_history,property_area,approved
5849,NA,1,Urban,Y
4583,128,1,Rural,N
3000,66,1,Urban,Y
2583,120,,Semiurban,Y
6000,141,1,Urban,Y
`

func TestParseCSVTypesAndMissing(t *testing.T) {
	frame, err := ParseCSV([]byte(loansCSV))
	require.NoError(t, err)

	assert.Equal(t, 5, frame.NumRows())
	assert.Equal(t, []string{"applicant_income", "loan_amount", "credit_history", "property_area", "approved"}, frame.Names())

	amount, err := frame.Numeric("loan_amount")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(amount[0]))
	assert.Equal(t, 128.0, amount[1])

	area, err := frame.Labels("property_area")
	require.NoError(t, err)
	assert.Equal(t, "Semiurban", area[3])

	history, err := frame.Column("credit_history")
	require.NoError(t, err)
	assert.Equal(t, Numeric, history.Kind)
	assert.Equal(t, 1, history.MissingCount())
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV([]byte("a,b\n"))
	assert.Error(t, err)
}

func TestFrameMatrix(t *testing.T) {
	frame := NewFrame()
	require.NoError(t, frame.AddNumeric("x", []float64{1, 2, 3}))
	require.NoError(t, frame.AddNumeric("y", []float64{4, 5, 6}))

	m, err := frame.Matrix("y", "x")
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, m.At(0, 0))
	assert.Equal(t, 1.0, m.At(0, 1))
}

func TestFrameCloneIsDeep(t *testing.T) {
	frame := NewFrame()
	require.NoError(t, frame.AddNumeric("x", []float64{1, 2}))

	clone := frame.Clone()
	vals, err := clone.Numeric("x")
	require.NoError(t, err)
	vals[0] = 99
	require.NoError(t, clone.SetNumeric("x", vals))

	orig, err := frame.Numeric("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, orig[0])
}

func TestFrameDropRows(t *testing.T) {
	frame := NewFrame()
	require.NoError(t, frame.AddNumeric("x", []float64{1, 2, 3}))
	require.NoError(t, frame.AddCategorical("c", []string{"a", "b", "c"}))

	out := frame.DropRows(map[int]bool{1: true})
	assert.Equal(t, 2, out.NumRows())

	labels, err := out.Labels("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, labels)
}

func TestFrameDuplicateColumn(t *testing.T) {
	frame := NewFrame()
	require.NoError(t, frame.AddNumeric("x", []float64{1}))
	assert.Error(t, frame.AddNumeric("x", []float64{2}))
}

func TestLookup(t *testing.T) {
	src, err := Lookup("stocks")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, src.Format)
	assert.Equal(t, "close", src.Target)

	_, err = Lookup("nope")
	assert.Error(t, err)
}

func TestFetcherRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("date,close\n2024-01-02,10.5\n"))
	}))
	defer srv.Close()

	fetcher := NewFetcher(config.FetchConfig{
		Timeout:    5 * time.Second,
		Retries:    3,
		RetryWait:  time.Millisecond,
		RatePerSec: 100,
		Burst:      10,
	}, nil)

	data, err := fetcher.Fetch(context.Background(), Source{ID: "stocks", URL: srv.URL, Format: FormatCSV})
	require.NoError(t, err)
	assert.Contains(t, string(data), "close")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcherExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := NewFetcher(config.FetchConfig{
		Timeout:    time.Second,
		Retries:    1,
		RetryWait:  time.Millisecond,
		RatePerSec: 100,
		Burst:      10,
	}, nil)

	_, err := fetcher.Fetch(context.Background(), Source{ID: "x", URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetcherUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	fetcher := NewFetcher(config.FetchConfig{
		Timeout:    time.Second,
		Retries:    0,
		RetryWait:  time.Millisecond,
		RatePerSec: 100,
		Burst:      10,
		CacheDir:   t.TempDir(),
	}, nil)

	src := Source{ID: "cached", URL: srv.URL, Format: FormatCSV}
	_, err := fetcher.Fetch(context.Background(), src)
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcherLimitsPerHost(t *testing.T) {
	fetcher := NewFetcher(config.FetchConfig{
		Timeout:    time.Second,
		RatePerSec: 1,
		Burst:      1,
	}, nil)

	a := fetcher.limiterFor("data.example.com")
	b := fetcher.limiterFor("other.example.com")
	assert.NotSame(t, a, b)
	assert.Same(t, a, fetcher.limiterFor("data.example.com"))
}

func TestFrameFromRecordsPadsShortRows(t *testing.T) {
	frame, err := frameFromRecords(
		[]string{"a", "b"},
		[][]string{{"1", "x"}, {"2"}},
	)
	require.NoError(t, err)

	b, err := frame.Labels("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", ""}, b)
}
