package main

import "gitwire.dev/gitwire/cmd"

func main() {
	cmd.Execute()
}
