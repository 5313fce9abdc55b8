// Command sheetlens converts spreadsheets to Parquet and answers questions
// about them with generated analysis snippets.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine; the environment may already carry the keys
	_ = godotenv.Load()

	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
