package data

import "embed"

//go:embed *.csv
var FS embed.FS
