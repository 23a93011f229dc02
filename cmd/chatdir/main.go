package main

import (
	"github.com/sembrant/chatdir/internal/cli"
)

func main() {
	cli.Execute()
}
