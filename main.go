package main

import "github.com/classlens/classlens/cmd"

func main() {
	cmd.Execute()
}
