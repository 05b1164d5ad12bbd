package main

import (
	"os"

	"github.com/iammytoo/policy-sql-dataset/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
