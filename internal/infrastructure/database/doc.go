// Package database provides SQLite connectivity for Gray Logic Edge.
//
// The database is the metadata store of the orchestrator: gateway device
// records and connection definitions live here (see migrations/).
//
// This package manages:
//   - Database connection with WAL mode for concurrent reads
//   - Embedded schema migrations, one transaction per migration
//   - Connection lifecycle and health checks
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
package database
