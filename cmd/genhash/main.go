// Prints the bcrypt hash of a manager PIN for MANAGER_PIN_HASH.
// Usage: go run ./cmd/genhash <pin>
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 || len(os.Args[1]) < 4 {
		fmt.Fprintln(os.Stderr, "usage: genhash <pin> (at least 4 characters)")
		os.Exit(2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), 12)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(h))
}
