package main

import "github.com/samuelfneumann/rlgov/cmd"

func main() {
	cmd.Execute()
}
