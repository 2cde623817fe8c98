package knowledge

import (
	"embed"
	"io/fs"
)

//go:embed docs
var embedded embed.FS

// Embedded returns the knowledge base shipped with the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "docs")
	if err != nil {
		// The docs directory is compiled in; fs.Sub cannot fail here.
		panic(err)
	}
	return sub
}
