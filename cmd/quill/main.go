package main

import (
	"os"

	"github.com/quilldesk/quill/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
