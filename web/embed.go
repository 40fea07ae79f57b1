package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

// FS 前端构建产物，根目录即 index.html 所在目录
func FS() fs.FS {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}
