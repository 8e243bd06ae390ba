// Package database provides page stores for webcrawl.
//
// Every store implements insert-if-absent: the first Store of a URL writes
// the page and reports inserted=true, later calls for the same URL leave
// the stored page untouched and report inserted=false. Failures are
// returned as *StoreError.
//
// Three implementations are provided:
//   - CrawlDB: SQLite file via modernc.org/sqlite (the default)
//   - MemoryStore: in-process map, for tests and throwaway runs
//   - RedisStore: Redis via SETNX, for sharing results between processes
//
// Design decision: We use SQLite (via modernc.org/sqlite) as the default
// because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. A UNIQUE url column gives insert-if-absent for free
// 4. WAL mode lets the pages command read while a crawl writes
package database
