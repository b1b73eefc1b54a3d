package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstack-labs/shelfline/internal/adapter"
	"github.com/northstack-labs/shelfline/internal/datagen"
	"github.com/northstack-labs/shelfline/internal/pricing"
	"github.com/northstack-labs/shelfline/internal/state"
)

func newTestDB(t *testing.T) adapter.Adapter {
	t.Helper()
	cfg := adapter.Config{Type: "duckdb", Path: ":memory:"}
	db, err := adapter.New(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T) state.Store {
	t.Helper()
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRawData(t *testing.T, db adapter.Adapter) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, datagen.Generate(dir, datagen.Config{
		Seed:        42,
		NumSales:    2000,
		NumProducts: 20,
		NumStores:   3,
	}))
	loaded, err := LoadRawData(context.Background(), db, nil, dir)
	require.NoError(t, err)
	require.Equal(t, 4, loaded)
}

func queryInt(t *testing.T, db adapter.Adapter, sql string) int64 {
	t.Helper()
	rows, err := db.Query(context.Background(), sql)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	var n int64
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Err())
	return n
}

func TestPipelineRun(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	seedRawData(t, db)

	p := New(db, store, Config{Anchor: pricing.AnchorLatestData})
	ctx := context.Background()

	run, err := p.Run(ctx, "test")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.NotNil(t, run.CompletedAt)

	stageRuns, err := store.GetStageRunsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, stageRuns, 5)
	for _, sr := range stageRuns {
		assert.Equal(t, state.StageRunStatusSuccess, sr.Status, "stage %s: %s", sr.Stage, sr.Error)
	}
	assert.Equal(t,
		[]string{"staging", "intermediate", "marts", "forecast", "pricing"},
		[]string{stageRuns[0].Stage, stageRuns[1].Stage, stageRuns[2].Stage, stageRuns[3].Stage, stageRuns[4].Stage})

	// Staged sales carry rows through to the fact table unchanged in count.
	stg := queryInt(t, db, `SELECT COUNT(*) FROM staging.stg_sales`)
	fct := queryInt(t, db, `SELECT COUNT(*) FROM marts.fct_sales`)
	assert.Equal(t, int64(2000), stg)
	assert.Equal(t, stg, fct)

	// Net sales amount derivation holds for every staged row.
	mismatched := queryInt(t, db, `SELECT COUNT(*) FROM staging.stg_sales
		WHERE ABS(net_sales_amount - quantity_sold * price_per_unit * (1 - discount_applied)) > 1e-6`)
	assert.Equal(t, int64(0), mismatched)

	// Product dimension is unique per product id.
	dim := queryInt(t, db, `SELECT COUNT(*) FROM marts.dim_products`)
	dimDistinct := queryInt(t, db, `SELECT COUNT(DISTINCT product_id) FROM marts.dim_products`)
	assert.Equal(t, int64(20), dim)
	assert.Equal(t, dim, dimDistinct)

	// Every product with sales history gets a full horizon of rows, all
	// non-negative.
	withHistory := queryInt(t, db, `SELECT COUNT(DISTINCT product_id) FROM marts.fct_sales`)
	forecasts := queryInt(t, db, `SELECT COUNT(*) FROM forecasts.product_demand_forecasts`)
	assert.Equal(t, withHistory*30, forecasts)
	negative := queryInt(t, db, `SELECT COUNT(*) FROM forecasts.product_demand_forecasts WHERE predicted_quantity < 0`)
	assert.Equal(t, int64(0), negative)

	// One recommendation per dimension product, price never below the
	// margin floor.
	recs := queryInt(t, db, `SELECT COUNT(*) FROM recommendations.product_pricing_recommendations`)
	assert.Equal(t, dim, recs)
	belowFloor := queryInt(t, db, `SELECT COUNT(*)
		FROM recommendations.product_pricing_recommendations r
		JOIN marts.dim_products dp ON dp.product_id = r.product_id
		WHERE r.recommended_price < dp.cost_price * 1.10 - 0.005`)
	assert.Equal(t, int64(0), belowFloor)
}

func TestIntermediateAggregation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Exec(ctx, `CREATE SCHEMA staging`))
	require.NoError(t, db.Exec(ctx, `CREATE TABLE staging.stg_sales (
		transaction_id VARCHAR, product_id VARCHAR, customer_id VARCHAR,
		sale_date DATE, quantity_sold BIGINT, price_per_unit DOUBLE,
		discount_applied DOUBLE, store_id VARCHAR, net_sales_amount DOUBLE)`))
	require.NoError(t, db.Exec(ctx, `INSERT INTO staging.stg_sales VALUES
		('TXN000001', 'PROD0001', 'CUST00001', DATE '2024-06-01', 2, 10.0, 0.0, 'STORE01', 20.0),
		('TXN000002', 'PROD0001', 'CUST00002', DATE '2024-06-01', 3, 10.0, 0.1, 'STORE01', 27.0),
		('TXN000003', 'PROD0001', 'CUST00001', DATE '2024-06-02', 1, 10.0, 0.0, 'STORE01', 10.0)`))
	require.NoError(t, db.Exec(ctx, `CREATE TABLE staging.stg_products (
		product_id VARCHAR, product_name VARCHAR, category VARCHAR, brand VARCHAR,
		cost_price DOUBLE, weight_kg DOUBLE, dimensions_cm VARCHAR, supplier_id VARCHAR)`))
	require.NoError(t, db.Exec(ctx, `INSERT INTO staging.stg_products VALUES
		('PROD0001', 'Widget', 'Electronics', 'Acme', 5.0, 1.0, '5x5x5', 'SUP001')`))
	require.NoError(t, db.Exec(ctx, `CREATE TABLE staging.stg_supplier (
		supplier_id VARCHAR, supplier_name VARCHAR, contact_person VARCHAR,
		lead_time_days BIGINT, minimum_order_quantity BIGINT)`))

	_, err := NewIntermediateStage(nil).Run(ctx, db)
	require.NoError(t, err)

	// Two transactions on June 1 collapse into one daily row.
	days := queryInt(t, db, `SELECT COUNT(*) FROM intermediate.int_daily_product_sales`)
	assert.Equal(t, int64(2), days)
	qty := queryInt(t, db, `SELECT daily_quantity_sold FROM intermediate.int_daily_product_sales
		WHERE sale_date = DATE '2024-06-01'`)
	assert.Equal(t, int64(5), qty)

	// Product details join survives a missing supplier row.
	details := queryInt(t, db, `SELECT COUNT(*) FROM intermediate.int_product_details
		WHERE supplier_name IS NULL`)
	assert.Equal(t, int64(1), details)
}

func TestPipelineRun_Idempotent(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	seedRawData(t, db)

	p := New(db, store, Config{Anchor: pricing.AnchorLatestData})
	ctx := context.Background()

	_, err := p.Run(ctx, "test")
	require.NoError(t, err)
	first := queryInt(t, db, `SELECT COUNT(*) FROM marts.fct_sales`)

	// Rebuilding from unchanged inputs replaces rather than appends.
	_, err = p.Run(ctx, "test")
	require.NoError(t, err)
	second := queryInt(t, db, `SELECT COUNT(*) FROM marts.fct_sales`)
	assert.Equal(t, first, second)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPipelineRun_MissingRawTablesFailsStaging(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)

	p := New(db, store, Config{})
	run, err := p.Run(context.Background(), "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage staging failed")
	require.NotNil(t, run)
	assert.Equal(t, state.RunStatusFailed, run.Status)

	stageRuns, serr := store.GetStageRunsForRun(run.ID)
	require.NoError(t, serr)
	require.Len(t, stageRuns, 5)
	assert.Equal(t, state.StageRunStatusFailed, stageRuns[0].Status)
	for _, sr := range stageRuns[1:] {
		assert.Equal(t, state.StageRunStatusSkipped, sr.Status)
	}
}

func TestPipelineRunSelected(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	seedRawData(t, db)

	p := New(db, store, Config{Anchor: pricing.AnchorLatestData})
	ctx := context.Background()

	run, err := p.RunSelected(ctx, "test", []string{"staging"})
	require.NoError(t, err)
	stageRuns, err := store.GetStageRunsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, stageRuns, 1)
	assert.Equal(t, "staging", stageRuns[0].Stage)

	exists, err := db.TableExists(ctx, "staging.stg_sales")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPipelineRunSelected_CanonicalOrder(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	seedRawData(t, db)

	p := New(db, store, Config{Anchor: pricing.AnchorLatestData})

	// Names out of order still run staging before marts.
	run, err := p.RunSelected(context.Background(), "test", []string{"marts", "intermediate", "staging"})
	require.NoError(t, err)

	stageRuns, err := store.GetStageRunsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, stageRuns, 3)
	assert.Equal(t,
		[]string{"staging", "intermediate", "marts"},
		[]string{stageRuns[0].Stage, stageRuns[1].Stage, stageRuns[2].Stage})
}

func TestPipelineRunSelected_UnknownStage(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)

	p := New(db, store, Config{})
	_, err := p.RunSelected(context.Background(), "test", []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown stage "nope"`)
}

func TestStagingStage_EmptyRawTableFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// All four tables exist, but sales is empty.
	stmts := []string{
		`CREATE TABLE sales (transaction_id VARCHAR, product_id VARCHAR, customer_id VARCHAR,
			sale_date DATE, quantity_sold BIGINT, price_per_unit DOUBLE, discount_applied DOUBLE, store_id VARCHAR)`,
		`CREATE TABLE product_catalog (product_id VARCHAR, product_name VARCHAR, category VARCHAR,
			brand VARCHAR, cost_price DOUBLE, weight_kg DOUBLE, dimensions_cm VARCHAR, supplier_id VARCHAR)`,
		`CREATE TABLE inventory (product_id VARCHAR, store_id VARCHAR, current_stock_level BIGINT, last_updated DATE)`,
		`CREATE TABLE supplier (supplier_id VARCHAR, supplier_name VARCHAR, contact_person VARCHAR,
			lead_time_days BIGINT, minimum_order_quantity BIGINT)`,
		`INSERT INTO product_catalog VALUES ('PROD0001', 'Widget', 'Electronics', 'Acme', 10.0, 1.0, '5x5x5', 'SUP001')`,
		`INSERT INTO inventory VALUES ('PROD0001', 'STORE01', 10, DATE '2024-06-01')`,
		`INSERT INTO supplier VALUES ('SUP001', 'Acme Distribution', 'Jo Smith', 7, 10)`,
	}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(ctx, stmt))
	}

	_, err := NewStagingStage(nil).Run(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required table sales is empty")
}

func TestStagingStage_ReportsAllMissingTables(t *testing.T) {
	db := newTestDB(t)

	_, err := NewStagingStage(nil).Run(context.Background(), db)
	require.Error(t, err)
	for _, table := range []string{"sales", "product_catalog", "inventory", "supplier"} {
		assert.Contains(t, err.Error(), "required table "+table+" does not exist")
	}
}

func TestLoadRawData_StripsSuffixes(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	require.NoError(t, datagen.Generate(dir, datagen.Config{
		Seed:        1,
		NumSales:    50,
		NumProducts: 5,
		NumStores:   2,
	}))

	ctx := context.Background()
	loaded, err := LoadRawData(ctx, db, nil, dir)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded)

	for _, table := range []string{"sales", "product_catalog", "inventory", "supplier"} {
		exists, err := db.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, exists, "table %s", table)
	}
}

func TestLoadRawData_EmptyDir(t *testing.T) {
	db := newTestDB(t)
	_, err := LoadRawData(context.Background(), db, nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CSV files")
}

func TestMaterialize_ReplacesExistingTable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows, err := Materialize(ctx, db, "staging.widgets", `SELECT 1 AS n UNION ALL SELECT 2`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	// A rebuild swaps in the new result set wholesale.
	rows, err = Materialize(ctx, db, "staging.widgets", `SELECT 7 AS n`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got := queryInt(t, db, `SELECT n FROM staging.widgets`)
	assert.Equal(t, int64(7), got)

	// No scratch table left behind.
	exists, err := db.TableExists(ctx, "staging.widgets__build")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMaterializeRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows, err := MaterializeRows(ctx, db, "forecasts.test_points",
		"product_id VARCHAR, forecast_date DATE, predicted_quantity BIGINT",
		[][]any{
			{"PROD0001", day, int64(5)},
			{"PROD0001", day.AddDate(0, 0, 1), int64(6)},
		})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	got := queryInt(t, db, `SELECT CAST(SUM(predicted_quantity) AS BIGINT) FROM forecasts.test_points`)
	assert.Equal(t, int64(11), got)
}
