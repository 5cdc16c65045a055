package main

import (
	"github.com/MeKo-Tech/lingolens/cmd/lingolens/cmd"
)

func main() {
	cmd.Execute()
}
