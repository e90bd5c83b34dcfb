package analytics

import (
	"context"
	"fmt"
)

// seedSchema is the sample analytics schema used for demos and tests.
var seedSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		signup_date DATE NOT NULL,
		country TEXT,
		subscription_type TEXT DEFAULT 'basic',
		total_logins INTEGER DEFAULT 0,
		is_active BOOLEAN DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		stock_quantity INTEGER DEFAULT 0,
		rating DECIMAL(3,2) DEFAULT 4.0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		order_date DATE NOT NULL,
		status TEXT DEFAULT 'completed',
		FOREIGN KEY (user_id) REFERENCES users (id),
		FOREIGN KEY (product_id) REFERENCES products (id)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		revenue DECIMAL(10,2) NOT NULL,
		sale_date DATE NOT NULL,
		region TEXT,
		FOREIGN KEY (product_id) REFERENCES products (id)
	)`,
}

var seedData = []string{
	`INSERT INTO users (id, name, email, signup_date, country, subscription_type, total_logins) VALUES
		(1, 'Alice Johnson', 'alice@example.com', '2024-01-15', 'US', 'premium', 120),
		(2, 'Bob Smith', 'bob@example.com', '2024-02-20', 'UK', 'basic', 45),
		(3, 'Carol Diaz', 'carol@example.com', '2024-03-05', 'ES', 'premium', 200),
		(4, 'Dan Lee', 'dan@example.com', '2024-04-11', 'KR', 'basic', 12)`,
	`INSERT INTO products (id, name, category, price, stock_quantity, rating) VALUES
		(1, 'Laptop Pro', 'electronics', 1899.00, 25, 4.7),
		(2, 'Desk Lamp', 'home', 39.90, 200, 4.1),
		(3, 'Noise-Cancelling Headphones', 'electronics', 299.00, 80, 4.5),
		(4, 'Standing Desk', 'furniture', 549.00, 15, 4.3)`,
	`INSERT INTO orders (id, user_id, product_id, quantity, amount, order_date, status) VALUES
		(1, 1, 1, 1, 1899.00, '2024-05-01', 'completed'),
		(2, 2, 2, 2, 79.80, '2024-05-03', 'completed'),
		(3, 3, 3, 1, 299.00, '2024-05-07', 'completed'),
		(4, 1, 4, 1, 549.00, '2024-05-09', 'pending'),
		(5, 4, 2, 1, 39.90, '2024-05-12', 'completed')`,
	`INSERT INTO sales (id, product_id, quantity, revenue, sale_date, region) VALUES
		(1, 1, 3, 5697.00, '2024-05-01', 'NA'),
		(2, 2, 10, 399.00, '2024-05-02', 'EU'),
		(3, 3, 5, 1495.00, '2024-05-04', 'APAC'),
		(4, 4, 2, 1098.00, '2024-05-06', 'NA')`,
}

// Seed creates the sample analytics tables and fills them with test data.
// Existing tables are dropped first so the database ends up in a known
// state.
func (d *DB) Seed(ctx context.Context) error {
	for _, table := range []string{"sales", "orders", "products", "users"} {
		if _, err := d.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	for _, stmt := range seedSchema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create seed schema: %w", err)
		}
	}
	for _, stmt := range seedData {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("insert seed data: %w", err)
		}
	}
	return nil
}
