package main

import "github.com/junaidrashid-git/eshop/cmd"

func main() {
	cmd.Execute()
}
