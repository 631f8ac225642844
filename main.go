package main

import "github.com/ValentinKolb/mlsrelay/cmd"

func main() {
	cmd.Execute()
}
