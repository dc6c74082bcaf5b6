// Package database provides SQLite storage for the Caséta bridge service.
//
// The database holds config entries (one per configured Caséta bridge) and
// the legacy static bridge side-table. It is opened in WAL mode with a single
// writer connection, and schema changes are applied from versioned migration
// files registered by the migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be NULLABLE or carry a DEFAULT,
// and every .up.sql ships with a matching .down.sql for manual rollback.
package database
