package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Name == "" {
				t.Errorf("migration version %d missing name", m.Version)
			}
		}
	})

	t.Run("parseMigrationName", func(t *testing.T) {
		tc := []struct {
			file      string
			version   int
			label     string
			direction string
			ok        bool
		}{
			{"0000_create_catalog_up.sql", 0, "create_catalog", "up", true},
			{"0012_add_index_down.sql", 12, "add_index", "down", true},
			{"README.sql", 0, "", "", false},
			{"0003_sideways.sql", 0, "", "", false},
			{"abcd_create_up.sql", 0, "", "", false},
		}

		for _, tt := range tc {
			version, label, direction, ok := parseMigrationName(tt.file)
			if ok != tt.ok || version != tt.version || label != tt.label || direction != tt.direction {
				t.Errorf("parseMigrationName(%q) = (%d, %q, %q, %v)", tt.file, version, label, direction, ok)
			}
		}
	})

	t.Run("splitStatements", func(t *testing.T) {
		t.Run("ignores semicolons inside comments", func(t *testing.T) {
			script := "-- owned elsewhere; read only\nCREATE TABLE a (id TEXT); -- trailing; note\n\nCREATE TABLE b (id TEXT);\n"

			stmts := splitStatements(script)

			want := []string{"CREATE TABLE a (id TEXT)", "CREATE TABLE b (id TEXT)"}
			if len(stmts) != len(want) {
				t.Fatalf("expected %d statements, got %d: %q", len(want), len(stmts), stmts)
			}
			for i := range want {
				if stmts[i] != want[i] {
					t.Errorf("statement %d: expected %q, got %q", i, want[i], stmts[i])
				}
			}
		})

		t.Run("comment-only script is empty", func(t *testing.T) {
			if stmts := splitStatements("-- nothing; here\n"); len(stmts) != 0 {
				t.Errorf("expected no statements, got %q", stmts)
			}
		})

		t.Run("commented script applies", func(t *testing.T) {
			db, err := NewDatabase(":memory:")
			if err != nil {
				t.Fatalf("failed to create database: %v", err)
			}
			defer db.Close()

			if err := createMigrationsTable(db); err != nil {
				t.Fatalf("failed to create migrations table: %v", err)
			}
			script := "-- first; second\nCREATE TABLE c (id TEXT);"
			if err := execMigration(db, script, 99, true); err != nil {
				t.Fatalf("expected commented script to apply, got %v", err)
			}
			if _, err := db.Exec("SELECT 1 FROM c LIMIT 1"); err != nil {
				t.Errorf("table c should exist: %v", err)
			}
		})
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		applied, err := RunMigrations(db)
		if err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if applied == 0 {
			t.Error("expected at least one migration to be applied")
		}

		for _, table := range []string{"users", "artists", "release_groups", "user_artists", "notifications", "jobs", "user_searches", "stars"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations after rollback: %v", err)
		}
		if count != applied-1 {
			t.Errorf("expected %d applied migrations after rollback, got %d", applied-1, count)
		}

		if _, err := db.Exec("SELECT 1 FROM jobs LIMIT 1"); err == nil {
			t.Error("jobs table should be gone after rollback")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		applied, err := RunMigrations(db)
		if err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
		if applied != 0 {
			t.Errorf("expected no migrations on second run, got %d", applied)
		}

		states, err := MigrationStatus(db)
		if err != nil {
			t.Fatalf("failed to read status: %v", err)
		}
		for _, s := range states {
			if !s.Applied {
				t.Errorf("migration %d should be applied", s.Version)
			}
		}
	})

	t.Run("Foreign keys enforced", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		_, err = db.Exec("INSERT INTO release_groups (id, artist_id, mbid, name, type, date) VALUES ('x', 'missing', 'm', 'n', 'Album', 20100000)")
		if err == nil {
			t.Error("expected foreign key violation for unknown artist")
		}
	})
}
