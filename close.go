package simvec

// Close waits for any background rebuild to finish and releases the
// database for garbage collection. The DB must not be used after Close.
func (db *DB[T]) Close() error {
	if db == nil {
		return nil
	}
	db.background.Wait()
	return nil
}
