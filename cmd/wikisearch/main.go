package main

import cmd "github.com/rohmanhakim/wikisearch/internal/cli"

func main() {
	cmd.Execute()
}
