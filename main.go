package main

import "github.com/linkpagos/ms-go-paylinks/cmd"

func main() {
	cmd.Execute()
}
