package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert. Ids are generated in Go so
// the same models work against Postgres and the sqlite test database.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
