package main

import (
	"context"
	"os"

	"github.com/enchant97/web-portal/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
