package main

import "github.com/ValentinKolb/xdb/cmd"

func main() {
	cmd.Execute()
}
