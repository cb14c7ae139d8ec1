package fifaranking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const rankingPage = `<html><head>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"pageData":{"ranking":{"dates":[{"dates":[{"id":"id14870","dateText":"19 Sep 2026"},{"id":"id14800","dateText":"18 Jul 2026"}]}]}}}}}</script>
</head><body></body></html>`

const rankingOverview = `{"rankings":[
  {"rankingItem":{"rank":1,"previousRank":2,"name":"Argentina","countryCode":"ARG","totalPoints":1886.16},"tag":{"id":"CONMEBOL"}},
  {"rankingItem":{"rank":43,"previousRank":43,"name":"Norway","countryCode":"nor","totalPoints":1502.33},"tag":{"id":"UEFA"}},
  {"rankingItem":{"rank":null,"name":"Unranked"},"tag":{"id":"OFC"}}
]}`

func newTestServer(t *testing.T, pageStatus *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ranking", func(w http.ResponseWriter, r *http.Request) {
		if status := pageStatus.Load(); status != 0 {
			pageStatus.Store(0)
			w.WriteHeader(int(status))
			return
		}
		_, _ = w.Write([]byte(rankingPage))
	})
	mux.HandleFunc("/api/ranking-overview", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dateId") != "id14870" || r.URL.Query().Get("locale") != "en" {
			t.Errorf("unexpected overview query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(rankingOverview))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchLatest(t *testing.T) {
	t.Parallel()

	var pageStatus atomic.Int32
	server := newTestServer(t, &pageStatus)
	client := NewClient(ClientConfig{
		PageURL:     server.URL + "/ranking",
		APIURL:      server.URL + "/api/ranking-overview",
		MinInterval: time.Millisecond,
	})

	got, err := client.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected unranked entries to be skipped, got=%d", len(got))
	}
	if got[1].FIFACode != "NOR" || got[1].Rank != 43 || got[1].Confederation != "UEFA" || got[1].Points != 1502.33 {
		t.Fatalf("unexpected norway row: %+v", got[1])
	}
	if got[0].PreviousRank != 2 {
		t.Fatalf("unexpected previous rank: got=%d want=2", got[0].PreviousRank)
	}
}

func TestFetchLatest_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var pageStatus atomic.Int32
	pageStatus.Store(http.StatusServiceUnavailable)
	server := newTestServer(t, &pageStatus)
	client := NewClient(ClientConfig{
		PageURL:     server.URL + "/ranking",
		APIURL:      server.URL + "/api/ranking-overview",
		MinInterval: time.Millisecond,
	})
	var waits []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	if _, err := client.FetchLatest(context.Background()); err != nil {
		t.Fatalf("FetchLatest error: %v", err)
	}
	if len(waits) != 1 || waits[0] != time.Second {
		t.Fatalf("unexpected retry waits: got=%v want=[1s]", waits)
	}
}

func TestParseLatestDateID_MissingScript(t *testing.T) {
	t.Parallel()

	if _, err := parseLatestDateID([]byte(`<html><body>nothing here</body></html>`)); err == nil {
		t.Fatalf("expected error for page without __NEXT_DATA__")
	}
}

func TestNewClient_DefaultTransportIsTraced(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{})
	if _, ok := c.httpClient.Transport.(*otelhttp.Transport); !ok {
		t.Fatalf("unexpected transport: got=%T want=*otelhttp.Transport", c.httpClient.Transport)
	}
}
