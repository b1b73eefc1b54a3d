// Package datagen writes synthetic retail CSV datasets (sales, product
// catalog, inventory, suppliers) for local development and tests.
package datagen

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// Config controls dataset shape. Zero values take the defaults below.
type Config struct {
	Seed         int64
	NumSales     int
	NumProducts  int
	NumStores    int
	NumCustomers int
	NumSuppliers int
	StartDate    time.Time
	EndDate      time.Time
}

func (c *Config) applyDefaults() {
	if c.NumSales == 0 {
		c.NumSales = 10000
	}
	if c.NumProducts == 0 {
		c.NumProducts = 100
	}
	if c.NumStores == 0 {
		c.NumStores = 10
	}
	if c.NumCustomers == 0 {
		c.NumCustomers = 500
	}
	if c.NumSuppliers == 0 {
		c.NumSuppliers = 20
	}
	if c.StartDate.IsZero() {
		c.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.EndDate.IsZero() {
		c.EndDate = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	}
}

var categories = []string{"Electronics", "Home Goods", "Apparel", "Books", "Groceries"}

var brandNames = []string{
	"Aurora Labs", "Brightline", "Cascade Trading", "Deco Works", "Everline",
	"Fairmont Goods", "Glenrock", "Harbor & Main", "Ironwood", "Juniper Co",
	"Kestrel", "Lumen Supply", "Meridian", "Northgate", "Oakfield",
	"Pinnacle", "Quarry Row", "Redwood Trading", "Stonebridge", "Trailhead",
}

var contactNames = []string{
	"Arjun Mehta", "Priya Sharma", "Rahul Verma", "Ananya Iyer", "Vikram Rao",
	"Sneha Kulkarni", "Karan Malhotra", "Divya Nair", "Rohan Gupta", "Meera Pillai",
}

// Generate writes the four raw CSV files into dir.
func Generate(dir string, cfg Config) error {
	cfg.applyDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := writeSales(dir, rng, cfg); err != nil {
		return err
	}
	if err := writeProductCatalog(dir, rng, cfg); err != nil {
		return err
	}
	if err := writeInventory(dir, rng, cfg); err != nil {
		return err
	}
	if err := writeSuppliers(dir, rng, cfg); err != nil {
		return err
	}
	return nil
}

func writeSales(dir string, rng *rand.Rand, cfg Config) error {
	spanDays := int(cfg.EndDate.Sub(cfg.StartDate).Hours() / 24)

	rows := [][]string{{
		"transaction_id", "product_id", "customer_id", "sale_date",
		"quantity_sold", "price_per_unit", "discount_applied", "store_id",
	}}
	for i := 0; i < cfg.NumSales; i++ {
		saleDate := cfg.StartDate.AddDate(0, 0, rng.Intn(spanDays+1))
		discount := 0.0
		if rng.Float64() < 0.3 {
			discount = round2(rng.Float64() * 0.2)
		}
		rows = append(rows, []string{
			fmt.Sprintf("TXN%06d", i),
			fmt.Sprintf("PROD%04d", 1+rng.Intn(cfg.NumProducts)),
			fmt.Sprintf("CUST%05d", 1+rng.Intn(cfg.NumCustomers)),
			saleDate.Format("2006-01-02"),
			fmt.Sprintf("%d", 1+rng.Intn(5)),
			fmt.Sprintf("%.2f", 100.0+rng.Float64()*4900.0),
			fmt.Sprintf("%.2f", discount),
			fmt.Sprintf("STORE%02d", 1+rng.Intn(cfg.NumStores)),
		})
	}
	return writeCSV(filepath.Join(dir, "sales_data.csv"), rows)
}

func writeProductCatalog(dir string, rng *rand.Rand, cfg Config) error {
	rows := [][]string{{
		"product_id", "product_name", "category", "brand",
		"cost_price", "weight_kg", "dimensions_cm", "supplier_id",
	}}
	for i := 1; i <= cfg.NumProducts; i++ {
		category := categories[rng.Intn(len(categories))]
		rows = append(rows, []string{
			fmt.Sprintf("PROD%04d", i),
			fmt.Sprintf("%s Item %d", category, i),
			category,
			brandNames[rng.Intn(len(brandNames))],
			fmt.Sprintf("%.2f", 50.0+rng.Float64()*2950.0),
			fmt.Sprintf("%.2f", 0.1+rng.Float64()*19.9),
			fmt.Sprintf("%dx%dx%d", 5+rng.Intn(46), 5+rng.Intn(46), 5+rng.Intn(46)),
			fmt.Sprintf("SUP%03d", 1+rng.Intn(cfg.NumSuppliers)),
		})
	}
	return writeCSV(filepath.Join(dir, "product_catalog_data.csv"), rows)
}

func writeInventory(dir string, rng *rand.Rand, cfg Config) error {
	rows := [][]string{{"product_id", "store_id", "current_stock_level", "last_updated"}}
	for p := 1; p <= cfg.NumProducts; p++ {
		for s := 1; s <= cfg.NumStores; s++ {
			lastUpdated := cfg.EndDate.AddDate(0, 0, -rng.Intn(7))
			rows = append(rows, []string{
				fmt.Sprintf("PROD%04d", p),
				fmt.Sprintf("STORE%02d", s),
				fmt.Sprintf("%d", rng.Intn(200)),
				lastUpdated.Format("2006-01-02"),
			})
		}
	}
	return writeCSV(filepath.Join(dir, "inventory_data.csv"), rows)
}

func writeSuppliers(dir string, rng *rand.Rand, cfg Config) error {
	rows := [][]string{{
		"supplier_id", "supplier_name", "contact_person", "lead_time_days", "minimum_order_quantity",
	}}
	for i := 1; i <= cfg.NumSuppliers; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("SUP%03d", i),
			fmt.Sprintf("%s Distribution", brandNames[rng.Intn(len(brandNames))]),
			contactNames[rng.Intn(len(contactNames))],
			fmt.Sprintf("%d", 2+rng.Intn(28)),
			fmt.Sprintf("%d", 10+rng.Intn(90)),
		})
	}
	return writeCSV(filepath.Join(dir, "supplier_data.csv"), rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func round2(x float64) float64 {
	return float64(int(x*100+0.5)) / 100
}
