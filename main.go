package main

import "github.com/chrisdamba/ridetopo/cmd"

func main() {
	cmd.Execute()
}
