package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leandroluk/golem-admin/core"
	"github.com/leandroluk/golem-admin/core/coretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	driver *coretest.Driver
	router *gin.Engine
	orders *core.Model
}

func newFixture(t *testing.T, options Options) *fixture {
	t.Helper()
	catalog, err := core.NewCatalog(
		&core.Model{
			Name:   "Customer",
			Fields: []core.FieldSpec{{Name: "name", Type: core.TypeText, Index: true}},
		},
		&core.Model{
			Name:   "User",
			Fields: []core.FieldSpec{{Name: "email", Type: core.TypeEmail}},
			Associations: []core.Association{
				{Name: "orders", Model: "Order", ForeignKey: "user_id"},
			},
		},
		&core.Model{
			Name: "Order",
			Fields: []core.FieldSpec{
				{Name: "status", Type: core.TypeText, Index: true},
				{Name: "total", Type: core.TypeNumber},
				{Name: "customer_id", Type: core.TypeLookup, AssociatedModel: "Customer", Index: true},
				{Name: "user_id", Type: core.TypeLookup, AssociatedModel: "User"},
				{Name: "created_at", Type: core.TypeDatetime},
				{Name: "updated_at", Type: core.TypeDatetime},
			},
		},
	)
	require.NoError(t, err)

	customers, _ := catalog.Model("Customer")
	users, _ := catalog.Model("User")
	orders, _ := catalog.Model("Order")

	driver := coretest.NewDriver()
	driver.Seed(customers,
		core.Document{"id": "c1", "name": "Ada"},
		core.Document{"id": "c2", "name": "Grace"},
	)
	driver.Seed(users,
		core.Document{"id": "u1", "email": "one@example.com"},
		core.Document{"id": "u2", "email": "two@example.com"},
		core.Document{"id": "u3", "email": "three@example.com"},
	)
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	driver.Seed(orders,
		core.Document{"id": "o1", "status": "pending", "total": 10.0, "customer_id": "c1", "user_id": "u1", "created_at": day(1)},
		core.Document{"id": "o2", "status": "paid", "total": 20.0, "customer_id": "c2", "user_id": "u1", "created_at": day(2)},
		core.Document{"id": "o3", "status": "Pending review", "total": 30.0, "customer_id": "c1", "user_id": "u2", "created_at": day(3)},
		core.Document{"id": "o4", "status": "shipped", "total": 40.0, "customer_id": "c2", "user_id": "u2", "created_at": day(4)},
		core.Document{"id": "o5", "status": "pend", "total": 50.0, "customer_id": nil, "user_id": "u3", "created_at": day(5)},
	)

	options.Compiler = core.NewCompiler(catalog, driver)
	return &fixture{driver: driver, router: New(options).Router(), orders: orders}
}

func (f *fixture) do(t *testing.T, method, target string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var request *http.Request
	if body != "" {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	} else {
		request = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	return recorder
}

type indexResponse struct {
	Results []map[string]any `json:"results"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	Total   int64            `json:"total"`
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out), recorder.Body.String())
	return out
}

func ids(results []map[string]any) []any {
	out := make([]any, 0, len(results))
	for _, result := range results {
		out = append(out, result["id"])
	}
	return out
}

func filterQuery(rows ...[3]string) url.Values {
	values := url.Values{}
	for _, row := range rows {
		values.Add("qk[]", row[0])
		values.Add("qb[]", row[1])
		values.Add("qv[]", row[2])
	}
	return values
}

func TestIndexFiltersAndSorts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	recorder := f.do(t, http.MethodGet, "/index/Order?"+filterQuery([3]string{"status", "in", "pend"}).Encode(), "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	response := decode[indexResponse](t, recorder)
	assert.Equal(t, int64(3), response.Total)
	assert.Equal(t, 1, response.Page)
	assert.Equal(t, 25, response.PerPage)
	assert.Equal(t, []any{"o5", "o3", "o1"}, ids(response.Results))
	assert.Equal(t, "2024-01-05T00:00:00Z", response.Results[0]["created_at"])
}

func TestIndexAnyModeAndExplicitOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	query := filterQuery(
		[3]string{"total", "lte", "10"},
		[3]string{"total", "gte", "50"},
	)
	query.Set("all_any", "any")
	query.Set("o", "total")
	query.Set("d", "asc")

	recorder := f.do(t, http.MethodGet, "/index/Order?"+query.Encode(), "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, []any{"o1", "o5"}, ids(decode[indexResponse](t, recorder).Results))
}

func TestIndexPaginates(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{PerPage: 2})

	recorder := f.do(t, http.MethodGet, "/index/Order?page=3", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	response := decode[indexResponse](t, recorder)
	assert.Equal(t, int64(5), response.Total)
	assert.Equal(t, []any{"o1"}, ids(response.Results))

	recorder = f.do(t, http.MethodGet, "/index/Order?page="+strconv.Itoa(math.MaxInt), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	response = decode[indexResponse](t, recorder)
	assert.Empty(t, response.Results)
	assert.Equal(t, math.MaxInt/2, response.Page)
}

func TestIndexCrossCollectionFilter(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	recorder := f.do(t, http.MethodGet, "/index/User?"+filterQuery([3]string{"orders.status", "is", "PAID"}).Encode(), "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, []any{"u1"}, ids(decode[indexResponse](t, recorder).Results))
}

func TestIndexErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"unknown model", "/index/Invoice", http.StatusNotFound},
		{"unknown field", "/index/Order?" + filterQuery([3]string{"colour", "is", "red"}).Encode(), http.StatusBadRequest},
		{"unknown association", "/index/Order?" + filterQuery([3]string{"lines.sku", "is", "x"}).Encode(), http.StatusBadRequest},
		{"unsupported operator", "/index/Order?" + filterQuery([3]string{"status", "gt", "a"}).Encode(), http.StatusBadRequest},
		{"unknown operator", "/index/Order?" + filterQuery([3]string{"status", "like", "a"}).Encode(), http.StatusBadRequest},
		{"mismatched rows", "/index/Order?qk[]=status&qb[]=is", http.StatusBadRequest},
		{"bad direction", "/index/Order?o=total&d=sideways", http.StatusBadRequest},
		{"bad mode", "/index/Order?all_any=some", http.StatusBadRequest},
		{"bad format", "/index/Order?format=xml", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, Options{})
			recorder := f.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.want, recorder.Code, recorder.Body.String())
		})
	}
}

func TestIndexBackendFailureIsInternal(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	f.driver.Err = errors.New("connection refused")

	recorder := f.do(t, http.MethodGet, "/index/Order", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "connection refused")
}

func TestFailSeparatesUnknownPlacesFromGeocoderOutages(t *testing.T) {
	t.Parallel()
	s := New(Options{})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown place", fmt.Errorf("%w: %q: %w", core.ErrGeocode, "Atlantis", core.ErrPlaceNotFound), http.StatusBadRequest},
		{"geocoder outage", fmt.Errorf("%w: %q: %w", core.ErrGeocode, "Paris", errors.New("unexpected status 503")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)
			c.Request = httptest.NewRequest(http.MethodGet, "/index/Store", nil)
			s.fail(c, tt.err)
			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}

func TestIndexCSV(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	query := filterQuery([3]string{"status", "in", "p"})
	query.Set("format", "csv")
	query.Set("o", "total")
	recorder := f.do(t, http.MethodGet, "/index/Order?"+query.Encode(), "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", recorder.Header().Get("Content-Type"))
	assert.Equal(t,
		"status,customer_id\n"+
			"pend,\n"+
			"shipped,Grace (id:c2)\n"+
			"Pending review,Ada (id:c1)\n"+
			"paid,Grace (id:c2)\n"+
			"pending,Ada (id:c1)\n",
		recorder.Body.String())
}

func TestLookup(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	recorder := f.do(t, http.MethodGet, "/lookup/Customer?q=gra", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	response := decode[struct {
		Results []map[string]string `json:"results"`
	}](t, recorder)
	assert.Equal(t, []map[string]string{{"id": "c2", "text": "Grace (id:c2)"}}, response.Results)
}

func TestCreateUpdateDestroy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	recorder := f.do(t, http.MethodPost, "/new/Order", `{"status":"draft","total":"12.5","customer_id":"c2"}`)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	created := decode[struct {
		Result map[string]any `json:"result"`
	}](t, recorder).Result
	id, ok := created["id"].(string)
	require.True(t, ok)
	assert.Equal(t, 12.5, created["total"])
	assert.NotEmpty(t, created["created_at"])

	recorder = f.do(t, http.MethodPost, "/edit/Order/"+id, `{"status":"sent"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	updated := decode[struct {
		Result map[string]any `json:"result"`
	}](t, recorder).Result
	assert.Equal(t, "sent", updated["status"])
	assert.Equal(t, 12.5, updated["total"])

	recorder = f.do(t, http.MethodPost, "/edit/Order/"+id, `{"colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = f.do(t, http.MethodPost, "/new/Order", `{"total":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = f.do(t, http.MethodPost, "/destroy/Order/"+id, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, f.driver.Documents(f.orders), 5)

	recorder = f.do(t, http.MethodPost, "/destroy/Order/"+id, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestIPAllowList(t *testing.T) {
	t.Parallel()

	direct := newFixture(t, Options{PermittedIPs: []string{"192.0.2.1"}})
	assert.Equal(t, http.StatusOK, direct.do(t, http.MethodGet, "/index/Customer", "").Code)

	proxied := newFixture(t, Options{PermittedIPs: []string{"203.0.113.7"}, ClientIPHeader: "X-Forwarded-For"})
	assert.Equal(t, http.StatusForbidden, proxied.do(t, http.MethodGet, "/index/Customer", "").Code)
	assert.Equal(t, http.StatusOK,
		proxied.do(t, http.MethodGet, "/index/Customer", "", "X-Forwarded-For", "203.0.113.7, 10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, proxied.do(t, http.MethodGet, "/health", "").Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	assert.Equal(t, "abc", f.do(t, http.MethodGet, "/health", "", "X-Request-ID", "abc").Header().Get("X-Request-ID"))
	assert.NotEmpty(t, f.do(t, http.MethodGet, "/health", "").Header().Get("X-Request-ID"))
}
