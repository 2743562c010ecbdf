// Command goverify is the operator CLI for a goVerify deployment: it checks
// configuration, derives account ids, signs test requests, migrates the SQL
// schema and inspects or clears lockouts.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
