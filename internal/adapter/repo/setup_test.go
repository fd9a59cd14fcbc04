package repo

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schemaStatements provisions the tables the repos run against. The service
// itself treats the schema as externally managed.
var schemaStatements = []string{
	`CREATE TABLE orders (
		id CHAR(36) PRIMARY KEY,
		status VARCHAR(16) NOT NULL,
		amount DECIMAL(12,2) NOT NULL,
		amount_paid DECIMAL(12,2) NULL,
		external_id VARCHAR(64) NULL,
		payment_data BLOB NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE order_details (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		email VARCHAR(255) NULL,
		phone VARCHAR(32) NULL,
		first_name VARCHAR(255) NULL,
		address VARCHAR(512) NULL,
		latitude VARCHAR(32) NULL,
		longitude VARCHAR(32) NULL,
		delivery_price DECIMAL(12,2) NOT NULL DEFAULT 0,
		comment TEXT NULL
	)`,
	`CREATE TABLE order_product_links (
		order_id CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		quantity INT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE products (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		rub_price DECIMAL(12,2) NOT NULL,
		weight DECIMAL(12,3) NULL,
		length DECIMAL(12,3) NULL,
		width DECIMAL(12,3) NULL,
		height DECIMAL(12,3) NULL,
		active TINYINT(1) NOT NULL DEFAULT 1
	)`,
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "testpass",
			"MYSQL_DATABASE":      "testdb",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
			WithStartupTimeout(120 * time.Second),
	}

	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		if err := mysqlC.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	dsn := fmt.Sprintf("root:testpass@tcp(%s:%s)/testdb?parseTime=true", host, port.Port())
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// the server may still be settling after the log line
	deadline := time.Now().Add(60 * time.Second)
	for {
		if err = db.Ping(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ping database: %v", err)
		}
		time.Sleep(time.Second)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}
