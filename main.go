package main

import "github.com/kebairia/reseed/cmd"

func main() {
	cmd.Execute()
}
