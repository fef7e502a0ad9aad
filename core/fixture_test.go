package core_test

import (
	"testing"
	"time"

	"github.com/leandroluk/golem-admin/core"
	"github.com/leandroluk/golem-admin/core/coretest"
	"github.com/leandroluk/golem-admin/geocode"
	"github.com/stretchr/testify/require"
)

// shop is the catalog shared by the core tests:
//
//	User     has_many orders (Order.user_id)
//	Order    lookups customer_id -> Customer, product_id -> Product
//	Store    located by coordinates
type shop struct {
	catalog   *core.Catalog
	driver    *coretest.Driver
	compiler  *core.Compiler
	users     *core.Model
	orders    *core.Model
	customers *core.Model
	products  *core.Model
	stores    *core.Model
}

func newShop(t *testing.T, options ...core.CompilerOption) *shop {
	t.Helper()
	catalog, err := core.NewCatalog(
		&core.Model{
			Name: "User",
			Fields: []core.FieldSpec{
				{Name: "email", Type: core.TypeEmail},
				{Name: "age", Type: core.TypeNumber},
			},
			Associations: []core.Association{{Name: "orders", Model: "Order", ForeignKey: "user_id"}},
		},
		&core.Model{
			Name: "Order",
			Fields: []core.FieldSpec{
				{Name: "status", Type: core.TypeText},
				{Name: "total", Type: core.TypeNumber},
				{Name: "placed_on", Type: core.TypeDate},
				{Name: "shipped_at", Type: core.TypeDatetime},
				{Name: "paid", Type: core.TypeCheckBox},
				{Name: "customer_id", Type: core.TypeLookup, AssociatedModel: "Customer"},
				{Name: "product_id", Type: core.TypeLookup, AssociatedModel: "Product"},
				{Name: "user_id", Type: core.TypeLookup, AssociatedModel: "User"},
				{Name: "receipt", Type: "file"},
				{Name: "summary", Type: core.TypeText, Virtual: true},
				{Name: "created_at", Type: core.TypeDatetime},
			},
		},
		&core.Model{
			Name:   "Customer",
			Fields: []core.FieldSpec{{Name: "name", Type: core.TypeText}},
		},
		&core.Model{
			Name:         "Product",
			DisplayField: "code",
			Fields:       []core.FieldSpec{{Name: "code", Type: core.TypeNumber}},
		},
		&core.Model{
			Name: "Store",
			Fields: []core.FieldSpec{
				{Name: "name", Type: core.TypeText},
				{Name: "address", Type: core.TypeGeopicker},
			},
		},
	)
	require.NoError(t, err)

	s := &shop{catalog: catalog, driver: coretest.NewDriver()}
	s.users, _ = catalog.Model("User")
	s.orders, _ = catalog.Model("Order")
	s.customers, _ = catalog.Model("Customer")
	s.products, _ = catalog.Model("Product")
	s.stores, _ = catalog.Model("Store")

	options = append([]core.CompilerOption{core.WithGeocoder(geocode.NewStatic(map[string]geocode.Point{
		"Paris": {Longitude: 2.3522, Latitude: 48.8566},
	}))}, options...)
	s.compiler = core.NewCompiler(catalog, s.driver, options...)
	return s
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

// seed loads five orders owned by three users. Statuses containing "pend"
// belong to orders o1, o3 and o5.
func (s *shop) seed() {
	s.driver.Seed(s.customers,
		core.Document{"id": "c1", "name": "Ada Lovelace"},
		core.Document{"id": "c2", "name": "Grace Hopper"},
	)
	s.driver.Seed(s.products,
		core.Document{"id": "p1", "code": 100.0},
		core.Document{"id": "p2", "code": 200.0},
	)
	s.driver.Seed(s.users,
		core.Document{"id": "u1", "email": "ada@example.com", "age": 36.0},
		core.Document{"id": "u2", "email": "grace@example.com", "age": 85.0},
		core.Document{"id": "u3", "email": "linus@example.com", "age": 54.0},
		core.Document{"id": "u4", "email": "nobody@example.com", "age": 20.0},
	)
	s.driver.Seed(s.orders,
		core.Document{"id": "o1", "status": "pending", "total": 10.0, "placed_on": day(1), "paid": false,
			"customer_id": "c1", "product_id": "p1", "user_id": "u1", "created_at": day(1)},
		core.Document{"id": "o2", "status": "paid", "total": 20.0, "placed_on": day(2), "paid": true,
			"customer_id": "c2", "product_id": "p2", "user_id": "u1", "created_at": day(2)},
		core.Document{"id": "o3", "status": "Pending review", "total": 30.0, "placed_on": day(3), "paid": false,
			"customer_id": "c1", "product_id": "p2", "user_id": "u2", "created_at": day(3)},
		core.Document{"id": "o4", "status": "shipped", "total": 40.0, "placed_on": day(4), "paid": true,
			"customer_id": "c2", "product_id": "p1", "user_id": "u2", "created_at": day(4)},
		core.Document{"id": "o5", "status": "SUSPENDED", "total": 50.0, "placed_on": day(5), "paid": false,
			"customer_id": nil, "product_id": nil, "user_id": "u3", "created_at": day(5)},
	)
	s.driver.Seed(s.stores,
		core.Document{"id": "s1", "name": "Louvre kiosk", "coordinates": []float64{2.3376, 48.8606}},
		core.Document{"id": "s2", "name": "Versailles shop", "coordinates": []float64{2.1204, 48.8049}},
		core.Document{"id": "s3", "name": "Lyon outlet", "coordinates": []float64{4.8357, 45.7640}},
	)
}

func documentIDs(documents []core.Document) []any {
	out := make([]any, 0, len(documents))
	for _, document := range documents {
		out = append(out, document["id"])
	}
	return out
}
