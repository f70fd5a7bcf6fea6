package main

import "github.com/lukman83/affiliate-gateway/cmd"

func main() {
	cmd.Execute()
}
