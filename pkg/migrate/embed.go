package migrate

import "embed"

// Embedded carries the SQL migrations so binaries do not depend on the working directory.
//
//go:embed migrations/*.sql
var Embedded embed.FS

const embeddedDir = "migrations"
