package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it empty. Postgres would
// default the column anyway but sqlite has no gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
