// Package appfs embeds the files shipped with the binaries: SQL migrations and the sample dataset.
package appfs

import "embed"

//go:embed migrations/*.sql assets/*.json
var FS embed.FS

// DatasetPath is the sample dataset loaded by `admin seed` when no file is given.
const DatasetPath = "assets/dataset.json"
