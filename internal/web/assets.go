package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed assets
var assetsFS embed.FS

// staticFS serves assets/ under /assets/.
var staticFS, _ = fs.Sub(assetsFS, "assets")

var pageTemplate = template.Must(template.ParseFS(assetsFS, "assets/index.html.tmpl"))
