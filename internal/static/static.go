// Package static holds the assets shared by every page of the portal.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var assets embed.FS

// HTTPFS returns the assets rooted at the static directory.
func HTTPFS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
