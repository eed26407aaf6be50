package main

import (
	"github.com/MeKo-Tech/pictor/cmd/pictor/cmd"
)

func main() {
	cmd.Execute()
}
