// Package digestcache keeps strong-ETag content digests between requests
// and between runs.
//
// A Digester wraps the FileSystem's own digester with a DigestStore. Entries
// are keyed by path, size and modification time; a changed file misses and
// is hashed again, replacing the old entry. Warm fills a store ahead of
// traffic by walking the served tree.
//
// # Supported Backends
//
//   - memory: per-process map, lost on restart
//   - sqlite: single-node persistence using modernc.org/sqlite
//   - postgres: shared persistence using a pgx connection pool
//
// # Usage
//
//	store, cleanup, err := digestcache.Connect(ctx, digestcache.Config{
//	    Type:  "sqlite",
//	    DSN:   "servefile.db",
//	    Table: "servefile_digests",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
//	digester := digestcache.New(fileStore, store)
//
// # Subpackages
//
//   - digestcache/postgres: PostgreSQL implementation using pgx
//   - digestcache/sqlite: SQLite implementation using modernc.org/sqlite
package digestcache
