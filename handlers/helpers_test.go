package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/internal/activities"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/internal/refresh"
	"github.com/harry-lons/runsum-be-nonorg/internal/strava"
	"github.com/harry-lons/runsum-be-nonorg/internal/tokens"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStrava serves the token, profile and activity endpoints and records calls.
type fakeStrava struct {
	mu sync.Mutex

	exchanges     int
	refreshes     int
	refreshResult map[string]interface{}
	refreshStatus int

	profileCalls int
	profileFail  bool

	pages       [][]map[string]interface{}
	failPage    int
	pageCalls   []int
	pageTokens  []string
	pageQueries []string
}

func (f *fakeStrava) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			f.exchanges++
			if r.PostForm.Get("code") != "abc123" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Bad Request"}`))
				return
			}
			writeJSON(w, map[string]interface{}{
				"token_type": "Bearer", "access_token": "AT1", "refresh_token": "RT1",
				"expires_at": time.Now().Add(time.Hour).Unix(),
			})
		case "refresh_token":
			f.refreshes++
			if f.refreshStatus != 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(f.refreshStatus)
				_, _ = w.Write([]byte(`{"message":"Authorization Error"}`))
				return
			}
			res := f.refreshResult
			if res == nil {
				res = map[string]interface{}{
					"token_type": "Bearer", "access_token": "AT2", "refresh_token": "RT2",
					"expires_at": time.Now().Add(6 * time.Hour).Unix(),
				}
			}
			writeJSON(w, res)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/api/v3/athlete", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.profileCalls++
		if f.profileFail || r.Header.Get("Authorization") != "Bearer AT1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]interface{}{"id": 42, "firstname": "Ann", "lastname": "Lee"})
	})
	mux.HandleFunc("/api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		f.pageCalls = append(f.pageCalls, page)
		f.pageTokens = append(f.pageTokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		f.pageQueries = append(f.pageQueries, r.URL.RawQuery)
		if f.failPage != 0 && page == f.failPage {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if page >= 1 && page <= len(f.pages) {
			writeJSON(w, f.pages[page-1])
			return
		}
		writeJSON(w, []interface{}{})
	})
	return mux
}

func (f *fakeStrava) upstreamCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges + f.refreshes + f.profileCalls + len(f.pageCalls)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type testApp struct {
	engine   *gin.Engine
	upstream *fakeStrava
	repo     *athletes.MemoryRepository
	issuer   *tokens.Issuer
	cfg      *config.Config
}

func newTestApp(t *testing.T, pageSize int) *testApp {
	t.Helper()
	up := &fakeStrava{}
	srv := httptest.NewServer(up.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.JWT.Secret = "handlers-test-secret-32-bytes-xx"
	cfg.JWT.SessionTTL = 30 * 24 * time.Hour
	cfg.Strava = config.StravaConfig{
		ClientID: "cid", ClientSecret: "csecret",
		APIURL: srv.URL + "/api/v3", OAuthURL: srv.URL + "/oauth",
		Timeout: 5 * time.Second, PageSize: pageSize,
	}
	cfg.Cookie = config.CookieConfig{
		SessionName: "access_token_cookie", CSRFName: "csrf_access_token", CSRFHeader: "X-CSRF-TOKEN",
	}

	repo := athletes.NewMemoryRepository()
	svc := athletes.NewService(repo)
	client := strava.NewClient(cfg.Strava)
	oauth := strava.NewOAuth(cfg.Strava, client.HTTPClient())
	issuer := tokens.NewIssuer(cfg)

	r := gin.New()
	Mount(r, Deps{
		Config:   cfg,
		Athletes: svc,
		OAuth:    oauth,
		Profiles: client,
		Tokens:   refresh.NewPolicy(repo, oauth, nil),
		Fetcher:  activities.NewFetcher(client, cfg.Strava.PageSize),
		Issuer:   issuer,
	})
	return &testApp{engine: r, upstream: up, repo: repo, issuer: issuer, cfg: cfg}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// sessionCookieFor issues a valid session for id.
func (a *testApp) sessionCookieFor(t *testing.T, id int64) *http.Cookie {
	t.Helper()
	raw, _, err := a.issuer.Issue(id, "Ann")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return &http.Cookie{Name: a.cfg.Cookie.SessionName, Value: raw}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func activityJSON(id int64) map[string]interface{} {
	return map[string]interface{}{
		"id": id, "name": "Run " + strconv.FormatInt(id, 10), "type": "Run",
		"start_date": "2024-05-01T06:30:00Z", "elapsed_time": 600, "moving_time": 590, "distance": 2000.0,
	}
}
