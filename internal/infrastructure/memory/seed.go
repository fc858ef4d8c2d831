package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	domcust "github.com/shopflow/fulfillment/internal/domain/customer"
	dominv "github.com/shopflow/fulfillment/internal/domain/inventory"
	domprod "github.com/shopflow/fulfillment/internal/domain/product"
)

type seedCustomer struct {
	name        string
	email       string
	creditLimit int64
}

type seedProduct struct {
	name        string
	description string
	price       string
	category    string
	sku         string
}

var seedCustomers = []seedCustomer{
	{"Alice Johnson", "alice@example.com", 5000},
	{"Bob Smith", "bob@example.com", 2000},
	{"Charlie Davis", "charlie@example.com", 10000},
	{"Diana Prince", "diana@example.com", 1500},
	{"Ethan Hunt", "ethan@example.com", 7500},
	{"Fiona Green", "fiona@example.com", 3000},
}

var seedProducts = []seedProduct{
	{"Wireless Bluetooth Headphones", "Premium noise-cancelling headphones with 30-hour battery life", "149.99", "Electronics", "ELEC-HP-001"},
	{"Smart Fitness Watch", "Track your health and fitness with advanced sensors", "299.99", "Electronics", "ELEC-FW-002"},
	{"Portable Power Bank 20000mAh", "High-capacity portable charger with fast charging", "49.99", "Electronics", "ELEC-PB-003"},
	{"4K Webcam", "Professional webcam with auto-focus and built-in mic", "89.99", "Electronics", "ELEC-WC-004"},
	{"Ergonomic Office Chair", "Adjustable lumbar support with breathable mesh", "349.99", "Furniture", "FURN-CH-001"},
	{"Standing Desk Converter", "Easily convert any desk to a standing desk", "199.99", "Furniture", "FURN-SD-002"},
	{"LED Desk Lamp", "Adjustable brightness with USB charging port", "39.99", "Furniture", "FURN-LM-003"},
	{"Yoga Mat Premium", "Non-slip exercise mat with carrying strap", "29.99", "Sports", "SPRT-YM-001"},
	{"Resistance Bands Set", "5-piece set with different resistance levels", "24.99", "Sports", "SPRT-RB-002"},
	{"Smart Water Bottle", "Tracks hydration with LED reminders", "34.99", "Sports", "SPRT-WB-003"},
	{"Mechanical Keyboard RGB", "Cherry MX switches with customizable lighting", "129.99", "Electronics", "ELEC-KB-005"},
	{"Wireless Gaming Mouse", "High-precision sensor with 20000 DPI", "79.99", "Electronics", "ELEC-MS-006"},
	{"USB-C Hub 7-in-1", "Expand connectivity with multiple ports", "44.99", "Electronics", "ELEC-HB-007"},
	{"Noise Cancelling Earbuds", "True wireless with active noise cancellation", "179.99", "Electronics", "ELEC-EB-008"},
	{"Adjustable Dumbbell Set", "Space-saving adjustable weight system", "399.99", "Sports", "SPRT-DB-004"},
}

// Stock levels cycle so the fixture always contains high-stock, low-stock,
// and near-exhausted products.
var seedStock = []int{150, 45, 8, 200, 15}

// Seed loads the demo fixture: six customers, fifteen products, and one
// inventory record per product spread across warehouses A through E.
func Seed(
	ctx context.Context,
	customers *CustomerRepository,
	products *ProductRepository,
	inventory *InventoryRepository,
	newID func() string,
) error {
	for _, sc := range seedCustomers {
		c, err := domcust.New(newID(), sc.name, sc.email, decimal.NewFromInt(sc.creditLimit))
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", sc.email, err)
		}
		if err := customers.Save(ctx, c); err != nil {
			return fmt.Errorf("seed customer %s: %w", sc.email, err)
		}
	}

	for i, sp := range seedProducts {
		price, err := decimal.NewFromString(sp.price)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", sp.sku, err)
		}
		p, err := domprod.New(newID(), sp.name, sp.description, price, sp.category, sp.sku)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", sp.sku, err)
		}
		if err := products.Save(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", sp.sku, err)
		}

		warehouse := fmt.Sprintf("Warehouse-%c", 'A'+i%5)
		rec, err := dominv.NewRecord(p.ID, seedStock[i%len(seedStock)], warehouse)
		if err != nil {
			return fmt.Errorf("seed inventory %s: %w", sp.sku, err)
		}
		if err := inventory.Save(ctx, rec); err != nil {
			return fmt.Errorf("seed inventory %s: %w", sp.sku, err)
		}
	}

	return nil
}
