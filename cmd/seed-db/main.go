// Command seed-db applies migrations and loads development fixtures: product
// variants from a JSON file, a demo customer with an address and points
// balance, a couple of coupons and the API keys used by local clients.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avelours/orderdesk/internal/auth"
	"github.com/avelours/orderdesk/internal/repository"
)

type variantJSON struct {
	ID          string          `json:"id"`
	ProductName string          `json:"productName"`
	ImageURL    string          `json:"imageUrl"`
	Price       decimal.Decimal `json:"price"`
	DiscountPct decimal.Decimal `json:"discountPct"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		variantsFile string
		apiKey       string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&variantsFile, "variants-file", "db/seed/variants.json", "path to product variants JSON file")
	flag.StringVar(&apiKey, "api-key", "", "orders-scope API key to seed (or ORDERDESK_SEED_API_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin-scope API key to seed (or ORDERDESK_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERDESK_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("ORDERDESK_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or ORDERDESK_SEED_API_KEY")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("ORDERDESK_SEED_ADMIN_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ORDERDESK_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, variantsFile, apiKey, adminKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, variantsFile, apiKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedVariants(ctx, pool, variantsFile); err != nil {
		return errors.Wrap(err, "seed variants")
	}

	if err := seedCustomer(ctx, pool); err != nil {
		return errors.Wrap(err, "seed customer")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, "default", "Default orders key", apiKey, pepper, []string{auth.ScopeOrders}); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	if adminKey != "" {
		if err := seedAPIKey(ctx, pool, "admin", "Admin key", adminKey, pepper, []string{auth.ScopeAdmin}); err != nil {
			return errors.Wrap(err, "seed admin key")
		}
	}

	return nil
}

const upsertVariantSQL = `INSERT INTO product_variants (id, product_name, image_url, price, discount_pct, available_stock)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET product_name = EXCLUDED.product_name,
	    image_url = EXCLUDED.image_url,
	    price = EXCLUDED.price,
	    discount_pct = EXCLUDED.discount_pct,
	    available_stock = EXCLUDED.available_stock`

func seedVariants(ctx context.Context, pool *pgxpool.Pool, variantsFile string) error {
	slog.Info("reading variants file", slog.String("path", variantsFile))

	data, err := os.ReadFile(variantsFile)
	if err != nil {
		return errors.Wrap(err, "read variants file")
	}

	var variants []variantJSON
	if err := json.Unmarshal(data, &variants); err != nil {
		return errors.Wrap(err, "parse variants JSON")
	}

	slog.Info("upserting variants", slog.Int("count", len(variants)))

	for _, v := range variants {
		_, err := pool.Exec(ctx, upsertVariantSQL,
			v.ID, v.ProductName, v.ImageURL, v.Price, v.DiscountPct, v.Stock)
		if err != nil {
			return errors.Wrapf(err, "upsert variant %s", v.ID)
		}

		slog.Info("upserted variant", slog.String("id", v.ID), slog.String("name", v.ProductName))
	}

	return nil
}

const (
	upsertCustomerSQL = `INSERT INTO customers (id, email, name, points_balance, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE
	SET email = EXCLUDED.email, name = EXCLUDED.name`

	upsertAddressSQL = `INSERT INTO addresses (id, customer_id, recipient, phone, address_text)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET recipient = EXCLUDED.recipient, phone = EXCLUDED.phone, address_text = EXCLUDED.address_text`
)

func seedCustomer(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo customer")

	_, err := pool.Exec(ctx, upsertCustomerSQL,
		"demo-customer", "demo@example.com", "Demo Customer", decimal.NewFromInt(500))
	if err != nil {
		return errors.Wrap(err, "upsert demo customer")
	}

	_, err = pool.Exec(ctx, upsertAddressSQL,
		"demo-address", "demo-customer", "Demo Customer", "+1-555-0100", "1 Demo Street, Springfield")
	if err != nil {
		return errors.Wrap(err, "upsert demo address")
	}

	return nil
}

const seedCouponSQL = `INSERT INTO coupons (code, discount_value, max_usage_count)
	VALUES ($1, $2, $3)
	ON CONFLICT (code) DO UPDATE
	SET discount_value = EXCLUDED.discount_value,
	    max_usage_count = GREATEST(coupons.max_usage_count, EXCLUDED.max_usage_count)`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding coupons")

	coupons := []struct {
		code     string
		value    decimal.Decimal
		maxUsage int
	}{
		{code: "WELCOME10", value: decimal.NewFromInt(10), maxUsage: 10_000},
		{code: "HAPPYHRS", value: decimal.NewFromInt(18), maxUsage: 1_000},
		// Single-use codes for exercising the redemption ledger limits.
		{code: "SINGLEUSE", value: decimal.NewFromInt(25), maxUsage: 1},
		{code: "LASTCALL", value: decimal.NewFromInt(5), maxUsage: 1},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, seedCouponSQL, c.code, c.value, c.maxUsage); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE
	SET key_hash = EXCLUDED.key_hash, name = EXCLUDED.name, scopes = EXCLUDED.scopes, active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, id, name, apiKey, pepper string, scopes []string) error {
	slog.Info("seeding API key", slog.String("id", id))

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL, id, keyHash, name, scopes); err != nil {
		return errors.Wrapf(err, "upsert API key %s", id)
	}

	slog.Info("upserted API key", slog.String("id", id), slog.String("name", name))

	return nil
}
