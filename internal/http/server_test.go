package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finagent-go/internal/ai"
	"finagent-go/internal/auth"
	"finagent-go/internal/board"
	"finagent-go/internal/catalog"
	"finagent-go/internal/config"
	"finagent-go/internal/database/dbtest"
	"finagent-go/internal/feed"
	"finagent-go/internal/ledger"
	"finagent-go/internal/users"
)

const adminToken = "admin-token"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, kind feed.Kind) (*feed.Payload, error) {
	if kind != feed.KindDeposit {
		return &feed.Payload{}, nil
	}
	return &feed.Payload{
		Base: []json.RawMessage{
			json.RawMessage(`{"fin_prdt_cd":"WR0001B","kor_co_nm":"우리은행","fin_prdt_nm":"WON플러스예금","join_deny":"1"}`),
			json.RawMessage(`{"fin_prdt_cd":"SH0002D","kor_co_nm":"신한은행","fin_prdt_nm":"쏠편한 정기예금","join_deny":null}`),
		},
		Options: []json.RawMessage{
			json.RawMessage(`{"fin_prdt_cd":"WR0001B","intr_rate_type_nm":"단리","save_trm":"6","intr_rate":2.9,"intr_rate2":3.0}`),
			json.RawMessage(`{"fin_prdt_cd":"WR0001B","intr_rate_type_nm":"복리","save_trm":"12","intr_rate":3.2,"intr_rate2":3.45}`),
			json.RawMessage(`{"fin_prdt_cd":"NOPE","intr_rate_type_nm":"단리","save_trm":"12","intr_rate":1,"intr_rate2":1}`),
		},
	}, nil
}

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

type harness struct {
	t         *testing.T
	router    *gin.Engine
	completer *stubCompleter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := dbtest.New(t)
	store := catalog.NewStore(db)
	cat := catalog.New(store, nil, logger)
	completer := &stubCompleter{}
	rec, err := ai.NewRecommender(completer, cat, logger)
	require.NoError(t, err)

	cfg := &config.Config{AllowOrigins: "*", AdminBearer: adminToken, ReqTimeoutSec: 5}
	router := NewServer(cfg, Deps{
		Catalog:     cat,
		Reconciler:  feed.NewReconciler(stubFetcher{}, store, cat, logger),
		Ledger:      ledger.NewService(db, store, logger),
		Recommender: rec,
		Auth:        auth.NewService(db, auth.NewTokens("test-secret", time.Hour)),
		Users:       users.NewService(db),
		Board:       board.NewStore(db),
		Logger:      logger,
	})
	return &harness{t: t, router: router, completer: completer}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) register(username string) string {
	h.t.Helper()
	w := h.do("POST", "/auth/register", "", gin.H{"username": username, "password": "password123", "age": 29, "salary": 42000000})
	require.Equal(h.t, 201, w.Code, w.Body.String())
	var resp AuthResponse
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func (h *harness) sync() {
	h.t.Helper()
	w := h.do("GET", "/products/save-deposit", adminToken, nil)
	require.Equal(h.t, 200, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do("GET", "/health", "", nil)
	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestProducts(t *testing.T) {
	h := newHarness(t)

	w := h.do("GET", "/products/save-deposit", "", nil)
	assert.Equal(t, 401, w.Code)

	w = h.do("GET", "/products/save-deposit", adminToken, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	var res feed.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Products)
	assert.Equal(t, 2, res.Options)
	assert.Equal(t, 1, res.SkippedOptions)

	w = h.do("GET", "/products/savings", "", nil)
	require.Equal(t, 200, w.Code)
	var list []struct {
		ProductCode string `json:"product_code"`
		JoinDeny    int    `json:"join_deny"`
		Options     []struct {
			TermMonths int `json:"term_months"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "WR0001B", list[0].ProductCode)
	assert.Len(t, list[0].Options, 2)
	assert.Equal(t, 0, list[1].JoinDeny)

	w = h.do("GET", "/products/savings?type=savings", "", nil)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, 400, h.do("GET", "/products/savings?type=bond", "", nil).Code)
	assert.Equal(t, 200, h.do("GET", "/products/savings/WR0001B", "", nil).Code)
	assert.Equal(t, 404, h.do("GET", "/products/savings/NOPE", "", nil).Code)

	w = h.do("GET", "/products/sync-all", adminToken, nil)
	assert.Equal(t, 200, w.Code, w.Body.String())

	assert.Equal(t, 204, h.do("DELETE", "/products/savings/SH0002D", adminToken, nil).Code)
	assert.Equal(t, 404, h.do("DELETE", "/products/savings/SH0002D", adminToken, nil).Code)
	assert.Equal(t, 404, h.do("DELETE", "/products/loan/rent/NONE", adminToken, nil).Code)

	w = h.do("GET", "/products/loan/rent", "", nil)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestJoinLifecycle(t *testing.T) {
	h := newHarness(t)
	h.sync()
	alice := h.register("alice")
	bob := h.register("bob")

	assert.Equal(t, 401, h.do("POST", "/products/WR0001B/join", "", nil).Code)
	assert.Equal(t, 404, h.do("POST", "/products/NOPE/join", alice, nil).Code)

	w := h.do("POST", "/products/WR0001B/join", alice, nil)
	require.Equal(t, 201, w.Code, w.Body.String())
	var sub struct {
		ID         uint   `json:"id"`
		TermMonths int    `json:"term_months"`
		Rate       string `json:"rate"`
		RateType   string `json:"rate_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, 12, sub.TermMonths)
	assert.Equal(t, "3.2", sub.Rate)
	assert.Equal(t, "M", sub.RateType)

	w = h.do("POST", "/products/WR0001B/join", alice, nil)
	assert.Equal(t, 400, w.Code)

	path := fmt.Sprintf("/products/joined/%d", sub.ID)
	assert.Equal(t, 403, h.do("PUT", path, bob, gin.H{"amount": 1}).Code)
	assert.Equal(t, 403, h.do("DELETE", path, bob, nil).Code)
	assert.Equal(t, 400, h.do("PUT", path, alice, gin.H{"rate_type": "X"}).Code)
	assert.Equal(t, 400, h.do("PUT", path, alice, gin.H{"joined_at": "07/10/2024"}).Code)
	assert.Equal(t, 400, h.do("PUT", "/products/joined/abc", alice, gin.H{}).Code)
	assert.Equal(t, 400, h.do("PUT", path, alice, gin.H{"term_months": 601}).Code)
	assert.Equal(t, 404, h.do("PUT", "/products/joined/999", alice, gin.H{"amount": 1}).Code)

	w = h.do("PUT", path, alice, gin.H{"amount": 1000000, "joined_at": "2024-10-01", "rate": "3.5", "rate_type": "S"})
	require.Equal(t, 200, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"amount":1000000`)
	assert.Contains(t, w.Body.String(), `"rate_type":"S"`)

	w = h.do("GET", "/products/joined", alice, nil)
	require.Equal(t, 200, w.Code)
	var held []struct {
		Projection struct {
			Interest string `json:"interest"`
		} `json:"projection"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &held))
	require.Len(t, held, 1)
	assert.Equal(t, "35000", held[0].Projection.Interest)

	w = h.do("GET", "/profile", alice, nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.NotContains(t, w.Body.String(), "password")

	assert.Equal(t, 204, h.do("DELETE", path, alice, nil).Code)
	assert.Equal(t, 404, h.do("DELETE", path, alice, nil).Code)
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t)
	tok := h.register("carol")

	w := h.do("PUT", "/profile", tok, gin.H{"money": 7000000, "email": "carol@example.com"})
	require.Equal(t, 200, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"money":7000000`)
	assert.Contains(t, w.Body.String(), `"age":29`)

	assert.Equal(t, 400, h.do("PUT", "/profile", tok, gin.H{"age": -3}).Code)
	assert.Equal(t, 401, h.do("PUT", "/profile", "garbage", gin.H{}).Code)
}

func TestAuth(t *testing.T) {
	h := newHarness(t)
	h.register("dave")

	assert.Equal(t, 409, h.do("POST", "/auth/register", "", gin.H{"username": "dave", "password": "password123"}).Code)
	assert.Equal(t, 400, h.do("POST", "/auth/register", "", gin.H{"username": "eve", "password": "short"}).Code)
	assert.Equal(t, 401, h.do("POST", "/auth/login", "", gin.H{"username": "dave", "password": "nope-nope"}).Code)

	w := h.do("POST", "/auth/login", "", gin.H{"username": "dave", "password": "password123"})
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)
}

func TestRecommend(t *testing.T) {
	h := newHarness(t)
	h.sync()
	tok := h.register("frank")

	h.completer.reply = "추천 결과입니다:\n" +
		`{"analysis":{"purpose":"목돈 마련","keywords":"예금, 안정"},"products":[{"product_code":"WR0001B","reason":"최고 금리"},{"product_code":"ZZZ","reason":"x"}]}`
	w := h.do("POST", "/products/recommend", tok, gin.H{"purpose": "buy a car in a year"})
	require.Equal(t, 200, w.Code, w.Body.String())
	var rec ai.Recommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.Len(t, rec.Products, 1)
	assert.Equal(t, "WR0001B", rec.Products[0].ProductCode)

	h.completer.reply = "no idea"
	w = h.do("POST", "/products/recommend", tok, gin.H{"purpose": "retire"})
	assert.Equal(t, 500, w.Code)
	assert.JSONEq(t, `{"error":"recommendation_failed","analysis":{"purpose":"analysis failed","keywords":"none"},"products":[]}`, w.Body.String())

	assert.Equal(t, 400, h.do("POST", "/products/recommend", tok, gin.H{}).Code)
}

func TestArticles(t *testing.T) {
	h := newHarness(t)
	author := h.register("author")
	other := h.register("other")

	assert.Equal(t, 401, h.do("POST", "/articles", "", gin.H{"title": "hi"}).Code)
	assert.Equal(t, 400, h.do("POST", "/articles", author, gin.H{"content": "no title"}).Code)

	w := h.do("POST", "/articles", author, gin.H{"title": "first post", "content": "hello"})
	require.Equal(t, 201, w.Code, w.Body.String())
	var a struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	path := fmt.Sprintf("/articles/%d", a.ID)

	assert.Equal(t, 200, h.do("GET", "/articles", "", nil).Code)
	assert.Equal(t, 200, h.do("GET", path, "", nil).Code)
	assert.Equal(t, 404, h.do("GET", "/articles/999", "", nil).Code)
	assert.Equal(t, 403, h.do("PUT", path, other, gin.H{"title": "mine now"}).Code)
	assert.Equal(t, 200, h.do("PUT", path, author, gin.H{"title": "edited"}).Code)
	assert.Equal(t, 403, h.do("DELETE", path, other, nil).Code)
	assert.Equal(t, 204, h.do("DELETE", path, author, nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodOptions, "/products/savings", "", nil)
	assert.Equal(t, 204, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
