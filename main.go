package main

import "github.com/mabhi256/gcmodel/cmd"

func main() {
	cmd.Execute()
}
