package main

import "github.com/bundlemux/bundlemux/internal/cmd"

func main() {
	cmd.Execute()
}
