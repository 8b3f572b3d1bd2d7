// Package database provides the SQLite connection behind the command history.
//
// It handles:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying embedded, versioned migrations
//   - Health checks
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
