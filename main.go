package main

import "profiles/cmd"

func main() {
	cmd.Execute()
}
