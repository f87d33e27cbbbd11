// Package all wires the built-in storage backends into the storage factory.
//
// It exists purely for side effects: importing it runs the init functions of
// each concrete backend, which register their Repository factories and
// database initializers with the storage package. Currently that is only
// "sqlite" (csvetl/internal/storage/sqlite).
//
// Typical usage (in cmd/etl/main.go or the driver):
//
//	import _ "csvetl/internal/storage/all"
//
//	created, err := storage.EnsureDatabase(ctx, storage.Config{Kind: "sqlite", Path: dbPath})
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", Path: dbPath})
//	defer repo.Close()
//	n, err := repo.ReplaceTable(ctx, "my_table", ds)
package all

import (
	_ "csvetl/internal/storage/sqlite"
)
