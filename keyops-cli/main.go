/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package main

import "github.com/johanix/keyops/keyops-cli/cmd"

func main() {
	cmd.Execute()
}
