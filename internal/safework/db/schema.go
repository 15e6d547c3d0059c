package db

import (
	"context"
	"fmt"
	"strings"
)

// columnTypes holds the dialect specific column types used by the schema.
type columnTypes struct {
	uuid      string
	timestamp string
}

func typesFor(dialect string) columnTypes {
	if dialect == DriverPostgres {
		return columnTypes{uuid: "UUID", timestamp: "TIMESTAMPTZ"}
	}
	return columnTypes{uuid: "TEXT", timestamp: "TIMESTAMP"}
}

// registrantColumns are shared by every registrant table.
const registrantColumns = `
	id {uuid} PRIMARY KEY,
	person_type VARCHAR(12) NOT NULL CHECK (person_type IN ('INDIVIDUAL', 'LEGAL_ENTITY')),
	tax_id VARCHAR(14) NOT NULL,
	legal_name VARCHAR(150) NOT NULL CHECK (legal_name <> ''),
	trade_name VARCHAR(150) NOT NULL DEFAULT '',
	phone VARCHAR(20) NOT NULL DEFAULT '',
	mobile VARCHAR(20) NOT NULL DEFAULT '',
	email VARCHAR(150) NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL,
	address_id {uuid} REFERENCES addresses (id) ON DELETE RESTRICT,
	created_at {timestamp} NOT NULL,
	updated_at {timestamp} NOT NULL`

// registrantConstraints closes every registrant table. Uniqueness of the tax
// id is per table; the check ties its length to the person type. Table
// constraints must follow all column definitions.
func registrantConstraints(table string) string {
	return fmt.Sprintf(`,
	CONSTRAINT %[1]s_tax_id_key UNIQUE (tax_id),
	CONSTRAINT %[1]s_tax_id_length CHECK (
		(person_type = 'INDIVIDUAL' AND LENGTH(tax_id) = 11) OR
		(person_type = 'LEGAL_ENTITY' AND LENGTH(tax_id) = 14)
	)`, table)
}

// schema lists the DDL in dependency order. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS addresses (
	id {uuid} PRIMARY KEY,
	street VARCHAR(150) NOT NULL,
	number VARCHAR(20) NOT NULL,
	complement VARCHAR(100) NOT NULL DEFAULT '',
	neighborhood VARCHAR(100) NOT NULL,
	municipality VARCHAR(100) NOT NULL,
	state_code VARCHAR(2) NOT NULL CHECK (LENGTH(state_code) = 2),
	postal_code VARCHAR(8) NOT NULL CHECK (LENGTH(postal_code) = 8),
	created_at {timestamp} NOT NULL,
	updated_at {timestamp} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS service_providers (` + registrantColumns +
		registrantConstraints("service_providers") + `
)`,
	`CREATE TABLE IF NOT EXISTS client_companies (` + registrantColumns +
		registrantConstraints("client_companies") + `
)`,
	`CREATE TABLE IF NOT EXISTS employees (` + registrantColumns + `,
	job_function VARCHAR(100) NOT NULL CHECK (job_function <> ''),
	client_company_id {uuid} NOT NULL REFERENCES client_companies (id) ON DELETE RESTRICT,
	admission_date {timestamp}` + registrantConstraints("employees") + `
)`,
	`CREATE TABLE IF NOT EXISTS contracts (
	id {uuid} PRIMARY KEY,
	number VARCHAR(50) NOT NULL DEFAULT '',
	client_company_id {uuid} NOT NULL REFERENCES client_companies (id) ON DELETE RESTRICT,
	service_provider_id {uuid} NOT NULL REFERENCES service_providers (id) ON DELETE RESTRICT,
	start_date {timestamp} NOT NULL,
	end_date {timestamp},
	active BOOLEAN NOT NULL,
	created_at {timestamp} NOT NULL,
	updated_at {timestamp} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS health_exams (
	id {uuid} PRIMARY KEY,
	employee_id {uuid} NOT NULL REFERENCES employees (id) ON DELETE RESTRICT,
	kind VARCHAR(20) NOT NULL CHECK (kind IN ('ADMISSION', 'PERIODIC', 'RETURN_TO_WORK', 'CHANGE_OF_FUNCTION', 'DISMISSAL')),
	exam_date {timestamp} NOT NULL,
	result VARCHAR(5) NOT NULL CHECK (result IN ('FIT', 'UNFIT')),
	valid_until {timestamp},
	physician_name VARCHAR(150) NOT NULL DEFAULT '',
	physician_registry VARCHAR(30) NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at {timestamp} NOT NULL,
	updated_at {timestamp} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS profiles (
	id {uuid} PRIMARY KEY,
	name VARCHAR(50) NOT NULL UNIQUE CHECK (name <> ''),
	created_at {timestamp} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS users (
	id {uuid} PRIMARY KEY,
	name VARCHAR(120) NOT NULL,
	email VARCHAR(150) NOT NULL UNIQUE,
	password_hash VARCHAR(100) NOT NULL,
	profile_id {uuid} NOT NULL REFERENCES profiles (id) ON DELETE RESTRICT,
	service_provider_id {uuid} NOT NULL REFERENCES service_providers (id) ON DELETE RESTRICT,
	active BOOLEAN NOT NULL,
	created_at {timestamp} NOT NULL,
	updated_at {timestamp} NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_employees_client_company ON employees (client_company_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_client_company ON contracts (client_company_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_service_provider ON contracts (service_provider_id)`,
	`CREATE INDEX IF NOT EXISTS idx_health_exams_employee ON health_exams (employee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_service_provider ON users (service_provider_id)`,
}

// Statements renders the schema for the given dialect.
func Statements(dialect string) []string {
	types := typesFor(dialect)
	r := strings.NewReplacer("{uuid}", types.uuid, "{timestamp}", types.timestamp)
	out := make([]string, len(schema))
	for i, stmt := range schema {
		out[i] = r.Replace(stmt)
	}
	return out
}

// Migrate applies the schema in a single transaction.
func (r *Repository) Migrate(ctx context.Context) error {
	stmts := Statements(r.db.Dialector.Name())
	return r.WithTransaction(ctx, func(tx *Repository) error {
		for _, stmt := range stmts {
			if err := tx.db.WithContext(ctx).Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		return nil
	})
}
