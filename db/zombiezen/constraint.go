package zombiezen

import (
	"strings"

	"github.com/keyward/keyward/db"
	"zombiezen.com/go/sqlite"
)

// translateConstraint maps a UNIQUE violation on the users table to the
// matching db error. Other errors are returned unchanged.
//
// SQLite reports the offending column as "UNIQUE constraint failed: users.email".
func translateConstraint(err error) error {
	if err == nil {
		return nil
	}
	if sqlite.ErrCode(err).ToPrimary() != sqlite.ResultConstraint {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return db.ErrDuplicateEmail
	case strings.Contains(msg, "users.external_id"):
		return db.ErrDuplicateExternalID
	}
	return err
}
