/*
Package storage provides BoltDB-backed persistence for the embedded
workspace backend.

Projects, pages and tabs are stored flat, one JSON record per entity, and
linked by parent id. List operations return records sorted by display
order. Tab content lives in its own bucket so that tab metadata can be read
without touching (possibly encrypted) content.

# Buckets

	projects   project id -> Project (without pages)
	pages      page id    -> Page (without tabs)
	tabs       tab id     -> Tab (without content)
	tab_data   tab id     -> TabDataRecord
	meta       key        -> raw bytes (password verifier, schema version)

# Transactions

Every call runs in its own bbolt transaction: reads in db.View, writes in
db.Update. Callers that need several writes to appear together serialize
them themselves; the embedded gateway holds a mutex for that.

# Usage

	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateProject(&types.Project{ID: id, Name: "Tower"}); err != nil {
		return err
	}

	_, err = store.GetProject("missing")
	errors.Is(err, storage.ErrNotFound) // true
*/
package storage
