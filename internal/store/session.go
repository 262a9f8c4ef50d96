package store

import "context"

// PruneSessions deletes expired rows of the session table and reports how
// many were removed.
func PruneSessions(ctx context.Context, db DBTX) (int64, error) {
	const query = `DELETE FROM sessions WHERE expiry < current_timestamp`
	result, err := db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
