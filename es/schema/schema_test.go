package schema_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getpup/pupstore/es/adapters/mysql"
	"github.com/getpup/pupstore/es/adapters/postgres"
	"github.com/getpup/pupstore/es/adapters/sqlite"
	"github.com/getpup/pupstore/es/dialect"
	"github.com/getpup/pupstore/es/schema"
)

func getTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "schema.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateStream_Layout(t *testing.T) {
	table := schema.CreateStream("")

	if table.Name != schema.DefaultStreamTable {
		t.Errorf("Name = %q, want %q", table.Name, schema.DefaultStreamTable)
	}

	wantColumns := map[string]dialect.Type{
		"identifier":               dialect.TypeFixedString,
		"stream_identifier":        dialect.TypeString,
		"stream_identifier_hash":   dialect.TypeFixedString,
		"version":                  dialect.TypeBigInt,
		"commit_version":           dialect.TypeBigInt,
		"event_version":            dialect.TypeBigInt,
		"type":                     dialect.TypeString,
		"type_hash":                dialect.TypeFixedString,
		"payload":                  dialect.TypeJSON,
		"payload_hash":             dialect.TypeFixedString,
		"metadata":                 dialect.TypeJSON,
		"recorded_at":              dialect.TypeDateTimeMicro,
		"recorded_at_microseconds": dialect.TypeInteger,
		"aggregate_name":           dialect.TypeString,
		"aggregate_name_hash":      dialect.TypeFixedString,
	}
	if len(table.Columns) != len(wantColumns) {
		t.Errorf("table has %d columns, want %d", len(table.Columns), len(wantColumns))
	}
	for name, typ := range wantColumns {
		c, ok := table.Column(name)
		if !ok {
			t.Errorf("missing column %s", name)
			continue
		}
		if c.Type != typ {
			t.Errorf("column %s type = %s, want %s", name, c.Type, typ)
		}
		if strings.HasSuffix(name, "_hash") && c.Length != 32 {
			t.Errorf("hash column %s length = %d, want 32", name, c.Length)
		}
	}

	var unique []schema.Index
	for _, idx := range table.Indexes {
		if idx.Unique {
			unique = append(unique, idx)
		}
	}
	if len(unique) != 1 {
		t.Fatalf("found %d unique indexes, want 1", len(unique))
	}
	if got := strings.Join(unique[0].Columns, ","); got != "stream_identifier_hash,version" {
		t.Errorf("unique index columns = %s", got)
	}
}

func TestCreateCommit_Layout(t *testing.T) {
	table := schema.CreateCommit("orders_commit")

	for _, name := range []string{"identifier", "stream_identifier_hash", "version", "data", "data_hash", "created_at", "created_at_microseconds"} {
		if _, ok := table.Column(name); !ok {
			t.Errorf("missing column %s", name)
		}
	}

	found := false
	for _, idx := range table.Indexes {
		if idx.Name == "orders_commit_sv_uix" && idx.Unique {
			found = true
		}
	}
	if !found {
		t.Error("commit table lacks the (stream, version) unique index")
	}
}

func TestStatements_PerDialect(t *testing.T) {
	tests := []struct {
		name     string
		dialect  dialect.Dialect
		required []string
	}{
		{
			name:    "postgres",
			dialect: postgres.NewDialect(),
			required: []string{
				`CREATE TABLE "event_stream" (`,
				`"recorded_at" TIMESTAMP(6) WITHOUT TIME ZONE NOT NULL`,
				`"metadata" TEXT DEFAULT NULL`,
				`PRIMARY KEY ("identifier")`,
				`CREATE UNIQUE INDEX "event_stream_sv_uix" ON "event_stream" ("stream_identifier_hash", "version")`,
			},
		},
		{
			name:    "mysql",
			dialect: mysql.NewDialect(),
			required: []string{
				"CREATE TABLE `event_stream` (",
				"`recorded_at` DATETIME(6) NOT NULL",
				"ENGINE=InnoDB",
				"CREATE UNIQUE INDEX `event_stream_sv_uix`",
			},
		},
		{
			name:    "sqlite",
			dialect: sqlite.NewDialect(),
			required: []string{
				`"recorded_at" TEXT NOT NULL`,
				`"recorded_at_microseconds" INTEGER NOT NULL`,
				`"type_hash" CHAR(32) NOT NULL`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schema.New()
			s.CreateStream("event_stream")
			all := strings.Join(schema.Statements(tt.dialect, s), "\n")

			for _, required := range tt.required {
				if !strings.Contains(all, required) {
					t.Errorf("statements missing %q:\n%s", required, all)
				}
			}
		})
	}
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		in      string
		want    schema.Model
		wantErr bool
	}{
		{"", schema.ModelStream, false},
		{"stream", schema.ModelStream, false},
		{" Commit ", schema.ModelCommit, false},
		{"ledger", "", true},
	}

	for _, tt := range tests {
		got, err := schema.ParseModel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseModel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestManager_ApplyIsIdempotent(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	manager := schema.NewManager(sqlite.NewDialect())
	desired := schema.ForModel(schema.ModelCommit, "", "")

	first, err := manager.Apply(ctx, db, desired)
	if err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("first Apply executed no statements")
	}

	for _, name := range []string{schema.DefaultStreamTable, schema.DefaultCommitTable} {
		exists, err := manager.HasTable(ctx, db, name)
		if err != nil {
			t.Fatalf("HasTable failed: %v", err)
		}
		if !exists {
			t.Errorf("table %s was not created", name)
		}
	}

	second, err := manager.Apply(ctx, db, desired)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second Apply executed %d statements, want 0: %v", len(second), second)
	}
}

func TestManager_DropIsIdempotent(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	manager := schema.NewManager(sqlite.NewDialect())

	statements, err := manager.Apply(ctx, db, schema.DropModel(schema.ModelStream, "", ""))
	if err != nil {
		t.Fatalf("dropping a missing table failed: %v", err)
	}
	if len(statements) != 0 {
		t.Errorf("drop of missing table executed %v", statements)
	}

	if _, err := manager.Apply(ctx, db, schema.ForModel(schema.ModelStream, "", "")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	statements, err = manager.Apply(ctx, db, schema.DropModel(schema.ModelStream, "", ""))
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if len(statements) != 1 {
		t.Errorf("drop executed %d statements, want 1", len(statements))
	}

	exists, err := manager.HasTable(ctx, db, schema.DefaultStreamTable)
	if err != nil {
		t.Fatalf("HasTable failed: %v", err)
	}
	if exists {
		t.Error("table still exists after drop")
	}
}

func TestManager_ApplyRollsBackOnFailure(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()

	var executed []string
	manager := schema.NewManager(sqlite.NewDialect(), schema.WithStatementHook(func(stmt string) {
		executed = append(executed, stmt)
	}))

	broken := &schema.Table{Name: "broken"}
	broken.AddColumn("id", dialect.TypeInteger, 0)
	broken.AddColumn("id", dialect.TypeInteger, 0)

	desired := schema.New()
	desired.CreateStream("")
	desired.AddTable(broken)

	_, err := manager.Apply(ctx, db, desired)
	var schemaErr *schema.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Apply error = %v, want *SchemaError", err)
	}
	if !strings.Contains(schemaErr.Statement, `"broken"`) {
		t.Errorf("SchemaError.Statement = %q, want the broken table statement", schemaErr.Statement)
	}
	if len(executed) == 0 {
		t.Error("statement hook was never called")
	}

	exists, err := manager.HasTable(ctx, db, schema.DefaultStreamTable)
	if err != nil {
		t.Fatalf("HasTable failed: %v", err)
	}
	if exists {
		t.Error("stream table survived the rolled back migration")
	}
}

func TestManager_RegisteredTypes(t *testing.T) {
	d := sqlite.NewDialect()
	d.RegisterType(dialect.TypeDateTimeMicro, "DATETIME")

	s := schema.New()
	s.CreateStream("")
	all := strings.Join(schema.Statements(d, s), "\n")

	if !strings.Contains(all, `"recorded_at" DATETIME NOT NULL`) {
		t.Errorf("registered type not used:\n%s", all)
	}
}
