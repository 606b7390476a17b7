package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/search", time.Second, srv.Client())
	require.NoError(t, err)
	return c, &calls
}

func TestGeocodeReturnsFirstResult(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Bedok North 123", r.URL.Query().Get("searchVal"))
		require.Equal(t, "Y", r.URL.Query().Get("returnGeom"))
		require.Equal(t, "1", r.URL.Query().Get("pageNum"))
		_, _ = w.Write([]byte(`{"found":2,"totalNumPages":1,"pageNum":1,"results":[
			{"SEARCHVAL":"A","LATITUDE":"1.33","LONGITUDE":"103.93"},
			{"SEARCHVAL":"B","LATITUDE":"1.40","LONGITUDE":"103.90"}]}`))
	})

	p, err := c.Geocode(context.Background(), "  Bedok North 123 ")
	require.NoError(t, err)
	require.InDelta(t, 1.33, p.Lat, 1e-9)
	require.InDelta(t, 103.93, p.Lon, 1e-9)
	require.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestGeocodeNoResults(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"found":0,"results":[]}`))
	})
	_, err := c.Geocode(context.Background(), "nowhere")
	require.True(t, errors.Is(err, ErrNoResults))
	require.True(t, IsLookupFailure(err))
}

func TestGeocodeMalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>oops</html>`,
		"bad latitude":  `{"found":1,"results":[{"LATITUDE":"x","LONGITUDE":"103.9"}]}`,
		"bad longitude": `{"found":1,"results":[{"LATITUDE":"1.3","LONGITUDE":""}]}`,
		"out of range":  `{"found":1,"results":[{"LATITUDE":"100","LONGITUDE":"103.9"}]}`,
	}
	for name, body := range bodies {
		body := body
		t.Run(name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.Geocode(context.Background(), "query")
			require.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestGeocodeHTTPError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Geocode(context.Background(), "query")
	require.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestGeocodeRejectsInvalidQueryWithoutCalling(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	})
	for _, q := range []string{"!!!", "", "   ", "Block 5; drop", "a/b"} {
		_, err := c.Geocode(context.Background(), q)
		require.True(t, errors.Is(err, ErrInvalidQuery), "query %q", q)
	}
	require.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestGeocodeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, 50*time.Millisecond, srv.Client())
	require.NoError(t, err)
	_, err = c.Geocode(context.Background(), "slow")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	require.False(t, IsLookupFailure(err))
}

func TestValidateQuery(t *testing.T) {
	require.NoError(t, ValidateQuery("Tampines Mall"))
	require.NoError(t, ValidateQuery("520123"))
	require.NoError(t, ValidateQuery("Café 1"))
	require.Error(t, ValidateQuery("!!!"))
	require.Error(t, ValidateQuery("#01-23"))
	require.Error(t, ValidateQuery(""))
}
