package zombiezen

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/keyward/keyward/db"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const userColumns = `id, email, name, password_hash, external_id, created, updated`

// newUserFromStmt creates a User struct from a SQLite statement.
// NULL password_hash and external_id read back as empty strings.
func newUserFromStmt(stmt *sqlite.Stmt) (*db.User, error) {
	created, err := db.TimeParse(stmt.GetText("created"))
	if err != nil {
		return nil, fmt.Errorf("error parsing created time: %w", err)
	}

	updated, err := db.TimeParse(stmt.GetText("updated"))
	if err != nil {
		return nil, fmt.Errorf("error parsing updated time: %w", err)
	}

	return &db.User{
		ID:           stmt.GetText("id"),
		Email:        stmt.GetText("email"),
		Name:         stmt.GetText("name"),
		PasswordHash: stmt.GetText("password_hash"),
		ExternalID:   stmt.GetText("external_id"),
		Created:      created,
		Updated:      updated,
	}, nil
}

// getUserBy runs a single row lookup on column. Returns nil, nil if no row matches.
func (d *Db) getUserBy(ctx context.Context, column, value string) (*db.User, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Put(conn)

	var user *db.User // Will remain nil if no rows found
	err = sqlitex.Execute(conn,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				user, err = newUserFromStmt(stmt)
				return err
			},
			Args: []any{value},
		})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByEmail retrieves a user by exact email match.
// Returns:
// - *db.User: User record if found, nil if no matching record exists
// - returned time fields are in UTC, RFC3339
// - error: Only returned for database errors, nil on successful query (even if no results)
func (d *Db) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	return d.getUserBy(ctx, "email", email)
}

// GetUserByExternalID retrieves the user linked to an external provider subject.
// An empty externalID never matches.
func (d *Db) GetUserByExternalID(ctx context.Context, externalID string) (*db.User, error) {
	if externalID == "" {
		return nil, nil
	}
	return d.getUserBy(ctx, "external_id", externalID)
}

func (d *Db) GetUserById(ctx context.Context, id string) (*db.User, error) {
	return d.getUserBy(ctx, "id", id)
}

// InsertUser creates a new user with a fresh uuid. Empty PasswordHash and
// ExternalID are stored as NULL. UNIQUE violations come back as
// db.ErrDuplicateEmail or db.ErrDuplicateExternalID; there is no prior read, the
// constraint decides.
func (d *Db) InsertUser(ctx context.Context, user db.User) (*db.User, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Put(conn)

	var created *db.User
	err = sqlitex.Execute(conn,
		`INSERT INTO users (id, email, name, password_hash, external_id)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
		RETURNING `+userColumns,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				created, err = newUserFromStmt(stmt)
				return err
			},
			Args: []any{
				uuid.NewString(),  // 1. id
				user.Email,        // 2. email
				user.Name,         // 3. name
				user.PasswordHash, // 4. password_hash
				user.ExternalID,   // 5. external_id
			},
		})
	if err != nil {
		return nil, translateConstraint(err)
	}
	if created == nil {
		return nil, fmt.Errorf("insert user: no row returned")
	}

	return created, nil
}

// UpdateUser applies patch in a single statement.
//   - external_id is only written when currently NULL, so a concurrent link
//     to another subject is never overwritten. Callers compare the returned
//     ExternalID with the one they asked for.
//   - name is only written when currently empty.
//
// Returns db.ErrUserNotFound when id does not exist.
func (d *Db) UpdateUser(ctx context.Context, id string, patch db.UserPatch) (*db.User, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Put(conn)

	var updated *db.User
	err = sqlitex.Execute(conn,
		`UPDATE users SET
			external_id = CASE WHEN external_id IS NULL AND :external_id <> '' THEN :external_id ELSE external_id END,
			name = CASE WHEN name = '' AND :name <> '' THEN :name ELSE name END,
			updated = (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		WHERE id = :id
		RETURNING `+userColumns,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				updated, err = newUserFromStmt(stmt)
				return err
			},
			Named: map[string]any{
				":external_id": patch.ExternalID,
				":name":        patch.NameIfUnset,
				":id":          id,
			},
		})
	if err != nil {
		return nil, translateConstraint(err)
	}
	if updated == nil {
		return nil, db.ErrUserNotFound
	}

	return updated, nil
}
