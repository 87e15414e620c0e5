package main

import (
	"fmt"
	"os"

	"github.com/deploykit/stagegate/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/tokengen/main.go <token>")
		fmt.Println("Generates a SHA-256 hash of the provided operator token for use in config.yaml")
		os.Exit(1)
	}

	token := os.Args[1]
	tokenHash := auth.HashToken(token)

	fmt.Printf("Token: %s\n", token)
	fmt.Printf("SHA-256 Hash: %s\n", tokenHash)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Printf("  auth:\n")
	fmt.Printf("    tokens:\n")
	fmt.Printf("      - token_hash: \"%s\"\n", tokenHash)
	fmt.Printf("        principal: \"operator-name\"\n")
}
