package tagml

import _ "embed"

// Version is the release version of the tagml module.
//
//go:embed VERSION
var Version string
