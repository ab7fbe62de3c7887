// Package database owns the MySQL connection pool and the schema the auth
// core and the CRUD glue depend on.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection. parseTime=true maps
// DATETIME columns to time.Time and loc=UTC keeps comparisons against the
// token expiry columns consistent.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema lists the idempotent DDL for every table the application touches.
// refresh_tokens keys on the token hash; owner_kind + owner_id replace the
// two-nullable-foreign-keys shape so a record can never point at both
// principal tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        name        VARCHAR(190) NOT NULL,
        email       VARCHAR(190) NOT NULL UNIQUE,
        address     VARCHAR(255) NOT NULL DEFAULT '',
        phone       VARCHAR(32)  NOT NULL DEFAULT '',
        is_active   TINYINT(1)   NOT NULL DEFAULT 1,
        created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS users (
        id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        email         VARCHAR(190) NOT NULL UNIQUE,
        password_hash VARCHAR(100) NOT NULL,
        role          ENUM('COMPANY_ADMIN','WAREHOUSE_AGENT','DRIVER') NOT NULL,
        company_id    BIGINT UNSIGNED NULL,
        first_name    VARCHAR(100) NOT NULL DEFAULT '',
        last_name     VARCHAR(100) NOT NULL DEFAULT '',
        phone         VARCHAR(32)  NOT NULL DEFAULT '',
        is_active     TINYINT(1)   NOT NULL DEFAULT 1,
        created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        CONSTRAINT fk_users_company FOREIGN KEY (company_id) REFERENCES companies(id)
    )`,
	`CREATE TABLE IF NOT EXISTS platform_owners (
        id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        email         VARCHAR(190) NOT NULL UNIQUE,
        password_hash VARCHAR(100) NOT NULL,
        name          VARCHAR(190) NOT NULL,
        created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        token_hash  CHAR(64) NOT NULL UNIQUE,
        owner_kind  ENUM('TENANT','PLATFORM') NOT NULL,
        owner_id    BIGINT UNSIGNED NOT NULL,
        expires_at  DATETIME NOT NULL,
        created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        KEY idx_refresh_tokens_expires (expires_at)
    )`,
	`CREATE TABLE IF NOT EXISTS warehouses (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        company_id  BIGINT UNSIGNED NOT NULL,
        name        VARCHAR(190) NOT NULL,
        address     VARCHAR(255) NOT NULL DEFAULT '',
        city        VARCHAR(100) NOT NULL DEFAULT '',
        postal_code VARCHAR(16)  NOT NULL DEFAULT '',
        created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        CONSTRAINT fk_warehouses_company FOREIGN KEY (company_id) REFERENCES companies(id)
    )`,
	`CREATE TABLE IF NOT EXISTS deliveries (
        id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        reference    VARCHAR(64) NOT NULL,
        company_id   BIGINT UNSIGNED NOT NULL,
        warehouse_id BIGINT UNSIGNED NOT NULL,
        driver_id    BIGINT UNSIGNED NULL,
        address      VARCHAR(255) NOT NULL,
        status       ENUM('CREATED','PREPARED','DISPATCHED','DELIVERED') NOT NULL DEFAULT 'CREATED',
        created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        UNIQUE KEY uq_deliveries_company_ref (company_id, reference),
        KEY idx_deliveries_driver (driver_id),
        CONSTRAINT fk_deliveries_company FOREIGN KEY (company_id) REFERENCES companies(id),
        CONSTRAINT fk_deliveries_warehouse FOREIGN KEY (warehouse_id) REFERENCES warehouses(id)
    )`,
}

// Migrate applies the schema statements in order. Every statement is
// CREATE TABLE IF NOT EXISTS, so running it on every boot is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
