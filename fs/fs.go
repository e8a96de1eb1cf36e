package appfs

import "embed"

// FS holds the files shipped inside the binaries: SQL migrations, templates and assets.
//go:embed migrations assets templates/*/*
var FS embed.FS
