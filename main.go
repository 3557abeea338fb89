package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/frahmantamala/gym-membership/cmd"
)

func main() {
	cmd.Execute()
}
