package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eppla/storefront/internal/assistant"
	"github.com/eppla/storefront/internal/cart"
	"github.com/eppla/storefront/internal/catalog"
	"github.com/eppla/storefront/internal/checkout"
	"github.com/eppla/storefront/internal/parsers/xml"
	"github.com/eppla/storefront/internal/pipeline"
	"github.com/eppla/storefront/internal/pricing"
	"github.com/eppla/storefront/internal/storage"
	"github.com/eppla/storefront/internal/types"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<products>
  <product><id>1</id><name>Φωτιστικό Nova</name><price>50</price><category>Φωτισμός &gt; Λάμπες</category></product>
  <product><id>2</id><name>Broken</name></product>
  <product><id>3</id><name>Γραφείο Oak</name><price>300</price><category>Έπιπλα Γραφείου &gt; Γραφεία</category></product>
</products>`

type stubFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

type stubRemote struct {
	err     error
	pullErr error
}

func (r stubRemote) Name() string { return "stub" }

func (r stubRemote) Push(context.Context, types.CatalogDocument) error { return r.err }

func (r stubRemote) Pull(context.Context) (types.CatalogDocument, bool, error) {
	return types.CatalogDocument{}, false, r.pullErr
}

type brokenStorage struct {
	storage.Storage
}

func (brokenStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk gone")
}

func (r stubRemote) HealthCheck(_ context.Context, client string) (catalog.HealthReport, error) {
	if r.err != nil {
		return catalog.HealthReport{}, r.err
	}
	return catalog.HealthReport{Status: "online", Client: client}, nil
}

type stubGenerator struct {
	text string
}

func (g stubGenerator) Generate(context.Context, assistant.Prompt) (string, error) {
	return g.text, nil
}

type testServer struct {
	router   *gin.Engine
	catalog  *catalog.Service
	pipeline *pipeline.Pipeline
	fetcher  *stubFetcher
	carts    *cart.Registry
}

func newTestServer(t *testing.T, remote catalog.RemoteStore, gen assistant.Generator) *testServer {
	t.Helper()
	return newTestServerFor(t, catalog.NewService(catalog.NewLocalStore(storage.NewMemoryStorage()), remote, nil), gen)
}

func newTestServerFor(t *testing.T, svc *catalog.Service, gen assistant.Generator) *testServer {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.DefaultConfig())
	require.NoError(t, err)
	normalizer, err := catalog.NewNormalizer(catalog.DefaultNormalizerOptions())
	require.NoError(t, err)

	fetcher := &stubFetcher{data: []byte(feed)}
	p := pipeline.New(svc, xml.NewParser(xml.DefaultParserOptions()), normalizer, engine, pipeline.WithFetcher(fetcher))
	carts := cart.NewRegistry()

	h := New(Deps{
		Catalog:  svc,
		Pipeline: p,
		Carts:    carts,
		Checkout: checkout.NewService(checkout.NewSimulatedGateway(), checkout.Config{
			SuccessURL: "https://shop.example/api/checkout/{REFERENCE}/success",
			CancelURL:  "https://shop.example/api/checkout/{REFERENCE}/cancel",
		}),
		Advisor: assistant.NewAdvisor(gen, assistant.Config{}),
		FeedURL: "https://supplier.example/feed.xml",
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.Register(router)
	h.RegisterAdmin(router.Group("/internal/admin"))
	return &testServer{router: router, catalog: svc, pipeline: p, fetcher: fetcher, carts: carts}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) ingest(t *testing.T) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/internal/admin/ingest", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, catalog.StateUninitialized, resp.Catalog)
	assert.Equal(t, "disabled", resp.Remote)
}

func TestIngestDefaultFeed(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(t, http.MethodPost, "/internal/admin/ingest", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	summary := decode[types.IngestionSummary](t, w)
	assert.Equal(t, 2, summary.Products)
	assert.Equal(t, 1, summary.SkippedCount)
	assert.Equal(t, []string{"https://supplier.example/feed.xml"}, s.fetcher.urls)

	w = s.do(t, http.MethodGet, "/internal/admin/runs/last", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), summary.RunID)
}

func TestIngestPastedText(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(t, http.MethodPost, "/internal/admin/ingest", IngestRequest{Text: feed})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, s.fetcher.urls)
	assert.Len(t, s.catalog.Products(), 2)
}

func TestIngestFailures(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		err    error
		status int
	}{
		{name: "unreachable", err: types.ErrFeedUnreachable, status: http.StatusBadGateway},
		{name: "malformed", data: "<html><body>nope</body></html>", status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, nil)
			s.fetcher.data, s.fetcher.err = []byte(tt.data), tt.err

			w := s.do(t, http.MethodPost, "/internal/admin/ingest", nil)
			assert.Equal(t, tt.status, w.Code)
			resp := decode[IngestFailedResponse](t, w)
			assert.NotEmpty(t, resp.Error)
			require.NotNil(t, resp.Summary)
			assert.Equal(t, types.RunStatusFailed, resp.Summary.Status)
			assert.Empty(t, s.catalog.Products())
		})
	}
}

func TestIngestRemoteDeniedIsWarning(t *testing.T) {
	denied := types.NewRemoteError("stub", "push", types.ErrRemoteWriteDenied, nil)
	s := newTestServer(t, stubRemote{err: denied}, nil)

	w := s.do(t, http.MethodPost, "/internal/admin/ingest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[types.IngestionSummary](t, w)
	require.NotNil(t, summary.RemoteHint)
	assert.Equal(t, types.RemoteWriteDeniedHint, *summary.RemoteHint)
	assert.Len(t, s.catalog.Products(), 2, "local catalog is still replaced")
}

func TestPreviewIngestLeavesCatalog(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(t, http.MethodPost, "/internal/admin/ingest/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[PreviewResponse](t, w)
	assert.Equal(t, 3, preview.Total)
	assert.Len(t, preview.Products, 2)
	assert.Empty(t, s.catalog.Products())
}

func TestLastRunBeforeAnyIngestion(t *testing.T) {
	s := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/internal/admin/runs/last", nil).Code)
}

func TestProducts(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.ingest(t)

	all := decode[ProductListResponse](t, s.do(t, http.MethodGet, "/api/products", nil))
	assert.Equal(t, 2, all.Count)

	lighting := decode[ProductListResponse](t, s.do(t, http.MethodGet, "/api/products?bucket=lighting", nil))
	require.Len(t, lighting.Products, 1)
	assert.Equal(t, "1", lighting.Products[0].ID)
	assert.Equal(t, types.Money(70_00), lighting.Products[0].Price)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/products?bucket=kitchen", nil).Code)

	byID := decode[types.Product](t, s.do(t, http.MethodGet, "/api/products/3", nil))
	assert.Equal(t, types.Money(390_00), byID.Price)

	bySlug := s.do(t, http.MethodGet, "/api/products/"+byID.Slug, nil)
	assert.Equal(t, http.StatusOK, bySlug.Code)
	assert.Equal(t, "3", decode[types.Product](t, bySlug).ID)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/products/nope", nil).Code)
}

func TestMenu(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.ingest(t)

	w := s.do(t, http.MethodGet, "/api/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Buckets []catalog.CategoryBucket `json:"buckets"`
	}](t, w)
	ids := make([]catalog.BucketID, 0, len(resp.Buckets))
	for _, b := range resp.Buckets {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, catalog.BucketLighting)
	assert.Contains(t, ids, catalog.BucketOffice)
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.ingest(t)

	w := s.do(t, http.MethodPost, "/api/cart/abc/items", AddCartItemRequest{ProductID: "1"})
	require.Equal(t, http.StatusOK, w.Code)
	s.do(t, http.MethodPost, "/api/cart/abc/items", AddCartItemRequest{ProductID: "1"})
	s.do(t, http.MethodPost, "/api/cart/abc/items", AddCartItemRequest{ProductID: "3"})

	summary := decode[cart.Summary](t, s.do(t, http.MethodGet, "/api/cart/abc", nil))
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, types.Money(2*70_00+390_00), summary.Total)

	w = s.do(t, http.MethodPatch, "/api/cart/abc/items/1", UpdateCartItemRequest{Delta: -10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[CartItemResponse](t, w).Item.Quantity, "quantity floors at one")

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/cart/abc/items/zzz", UpdateCartItemRequest{Delta: 1}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/cart/abc/items", AddCartItemRequest{ProductID: "zzz"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/cart/abc/items", map[string]string{}).Code)

	summary = decode[cart.Summary](t, s.do(t, http.MethodDelete, "/api/cart/abc/items/3", nil))
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/cart/abc/items/3", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/cart/abc", nil).Code)
	assert.Equal(t, 0, s.carts.Len())
}

func TestEmptyCartForUnknownSession(t *testing.T) {
	s := newTestServer(t, nil, nil)

	summary := decode[cart.Summary](t, s.do(t, http.MethodGet, "/api/cart/unknown", nil))
	assert.Empty(t, summary.Items)
	assert.Zero(t, s.carts.Len(), "reads do not create carts")
}

func TestCheckoutSuccessClearsCart(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.ingest(t)
	s.do(t, http.MethodPost, "/api/cart/abc/items", AddCartItemRequest{ProductID: "3"})

	w := s.do(t, http.MethodPost, "/api/checkout/abc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[CheckoutResponse](t, w)
	assert.Equal(t, "simulated", resp.Provider)
	assert.Equal(t, types.Money(390_00), resp.Amount)
	assert.Equal(t, "eur", resp.Currency)
	assert.Contains(t, resp.RedirectURL, "https://shop.example/api/checkout/abc/success")

	w = s.do(t, http.MethodGet, "/api/checkout/abc/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[CheckoutOutcomeResponse](t, w).Cart.Count, "cancel keeps the cart")

	w = s.do(t, http.MethodGet, "/api/checkout/abc/success?session_id="+resp.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[CheckoutOutcomeResponse](t, w)
	assert.Equal(t, checkout.OutcomeSuccess, out.Outcome)
	assert.Zero(t, out.Cart.Count)
}

func TestCheckoutSuccessRequiresConfirmedPayment(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.ingest(t)
	s.do(t, http.MethodPost, "/api/cart/abc/items", AddCartItemRequest{ProductID: "3"})
	s.do(t, http.MethodPost, "/api/cart/other/items", AddCartItemRequest{ProductID: "3"})

	w := s.do(t, http.MethodPost, "/api/checkout/abc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issued := decode[CheckoutResponse](t, w).SessionID

	tests := []struct {
		name string
		path string
	}{
		{"no session id", "/api/checkout/abc/success"},
		{"unknown session id", "/api/checkout/abc/success?session_id=sim_forged"},
		{"session of another cart", "/api/checkout/other/success?session_id=" + issued},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())
		})
	}

	for _, session := range []string{"abc", "other"} {
		summary := decode[cart.Summary](t, s.do(t, http.MethodGet, "/api/cart/"+session, nil))
		assert.Equal(t, 1, summary.Count, "unconfirmed success keeps the %s cart", session)
	}

	w = s.do(t, http.MethodGet, "/api/checkout/abc/success?session_id="+issued, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, decode[CheckoutOutcomeResponse](t, w).Cart.Count)
}

func TestCheckoutErrors(t *testing.T) {
	s := newTestServer(t, nil, nil)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/checkout/none", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/checkout/none/refund", nil).Code)
}

func TestAssistant(t *testing.T) {
	s := newTestServer(t, nil, stubGenerator{text: "Try the Oak desk."})

	w := s.do(t, http.MethodPost, "/api/assistant", AskRequest{Session: "abc", Query: "a desk?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, assistant.Reply{Text: "Try the Oak desk."}, decode[assistant.Reply](t, w))

	w = s.do(t, http.MethodGet, "/api/assistant/abc", nil)
	resp := decode[struct {
		Messages []assistant.Message `json:"messages"`
	}](t, w)
	assert.Len(t, resp.Messages, 2)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/assistant", AskRequest{Query: "  "}).Code)
}

func TestAssistantDisabledFallsBack(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(t, http.MethodPost, "/api/assistant", AskRequest{Query: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	reply := decode[assistant.Reply](t, w)
	assert.True(t, reply.Fallback)
	assert.Equal(t, assistant.UnavailableText, reply.Text)
}

func TestGenerateSEO(t *testing.T) {
	s := newTestServer(t, nil, stubGenerator{text: `{"metaTitle":"Oak","metaDescription":"Desk","keywords":["γραφείο"]}`})
	s.ingest(t)

	w := s.do(t, http.MethodPost, "/internal/admin/products/3/seo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Oak", decode[assistant.SEOContent](t, w).MetaTitle)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/internal/admin/products/nope/seo", nil).Code)

	disabled := newTestServer(t, nil, nil)
	disabled.ingest(t)
	assert.Equal(t, http.StatusServiceUnavailable, disabled.do(t, http.MethodPost, "/internal/admin/products/3/seo", nil).Code)
}

func TestTiers(t *testing.T) {
	s := newTestServer(t, nil, nil)

	resp := decode[TiersResponse](t, s.do(t, http.MethodGet, "/internal/admin/tiers", nil))
	require.Len(t, resp.Tiers, 4)
	assert.Equal(t, types.Money(200_00), resp.Tiers[1].Threshold)
	assert.Equal(t, types.Money(260_00), resp.Tiers[1].ExampleSalePrice)
	assert.True(t, resp.MSRPCeiling.Enabled)

	w := s.do(t, http.MethodPut, "/internal/admin/tiers", PutTiersRequest{Tiers: []types.MarkupTier{{Threshold: 0, Percentage: 10}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[TiersResponse](t, w).Tiers, 1)

	s.ingest(t)
	p, ok := s.catalog.Product("1")
	require.True(t, ok)
	assert.Equal(t, types.Money(55_00), p.Price, "new tiers apply on the next ingestion")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/internal/admin/tiers", PutTiersRequest{}).Code)
}

func TestClearCatalog(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.ingest(t)

	w := s.do(t, http.MethodDelete, "/internal/admin/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[catalog.Status](t, w).Products)
	assert.Empty(t, s.catalog.Products())
}

func TestCheckRemote(t *testing.T) {
	tests := []struct {
		name   string
		remote catalog.RemoteStore
		status int
		hint   string
	}{
		{name: "online", remote: stubRemote{}, status: http.StatusOK},
		{name: "disabled", remote: nil, status: http.StatusServiceUnavailable},
		{
			name:   "denied",
			remote: stubRemote{err: types.NewRemoteError("stub", "health", types.ErrRemoteWriteDenied, nil)},
			status: http.StatusForbidden,
			hint:   types.RemoteWriteDeniedHint,
		},
		{
			name:   "unreachable",
			remote: stubRemote{err: types.NewRemoteError("stub", "health", types.ErrRemoteUnreachable, nil)},
			status: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.remote, nil)
			w := s.do(t, http.MethodPost, "/internal/admin/remote/check", nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.hint != "" {
				assert.Equal(t, tt.hint, decode[ErrorResponse](t, w).Hint)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := s.do(t, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, decode[map[string]string](t, w)["session"], 36)
}

func TestCatalogRoutesUnavailableAfterHydrationFailure(t *testing.T) {
	bundleBroken := true
	svc := catalog.NewService(
		catalog.NewLocalStore(brokenStorage{Storage: storage.NewMemoryStorage()}),
		stubRemote{pullErr: types.NewRemoteError("stub", "pull", types.ErrRemoteUnreachable, errors.New("timeout"))},
		nil,
		catalog.WithDefaultCatalog(func() (types.CatalogDocument, error) {
			if bundleBroken {
				return types.CatalogDocument{}, errors.New("corrupt bundle")
			}
			return types.NewCatalogDocument([]types.Product{{ID: "d1", Name: "Default", Slug: "default", Price: 10_00}}, time.Time{}), nil
		}),
	)
	s := newTestServerFor(t, svc, nil)
	require.ErrorIs(t, svc.Hydrate(context.Background()), types.ErrHydrationFailure)

	for _, path := range []string{"/api/products", "/api/products/d1", "/api/menu"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Contains(t, decode[ErrorResponse](t, w).Error, types.ErrHydrationFailure.Error(), path)
	}
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/health", nil).Code)

	w := s.do(t, http.MethodPost, "/internal/admin/catalog/hydrate", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "retry fails while every source is down")

	bundleBroken = false
	w = s.do(t, http.MethodPost, "/internal/admin/catalog/hydrate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	status := decode[catalog.Status](t, w)
	assert.Equal(t, catalog.StateReady, status.State)
	assert.Equal(t, catalog.SourceDefault, status.Source)

	list := decode[ProductListResponse](t, s.do(t, http.MethodGet, "/api/products", nil))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/products/d1", nil).Code)
}

func TestHydrateCatalogIsNoOpWhenReady(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.ingest(t)

	w := s.do(t, http.MethodPost, "/internal/admin/catalog/hydrate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, catalog.SourceIngestion, decode[catalog.Status](t, w).Source)
}
