package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mlowell/blunderlab/internal/config"
	"github.com/mlowell/blunderlab/internal/storage"
)

func runTokenCommand() {
	if len(os.Args) < 3 {
		printTokenUsage()
		os.Exit(1)
	}

	dir, err := config.Dir()
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}
	passphrase := os.Getenv("BLUNDERLAB_PASSPHRASE")

	switch os.Args[2] {
	case "set":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Error: token set requires the token value")
			fmt.Fprintln(os.Stderr, "Usage: blunderlab token set <token>")
			os.Exit(1)
		}
		if passphrase == "" {
			log.Fatalf("BLUNDERLAB_PASSPHRASE must be set to seal the token")
		}
		if err := storage.SaveToken(dir, os.Args[3], passphrase); err != nil {
			log.Fatalf("Failed to store token: %v", err)
		}
		fmt.Println("Token stored.")

	case "show":
		if !storage.HasToken(dir) {
			fmt.Println("No token stored.")
			return
		}
		if passphrase == "" {
			log.Fatalf("BLUNDERLAB_PASSPHRASE must be set to read the token")
		}
		token, err := storage.LoadToken(dir, passphrase)
		if err != nil {
			log.Fatalf("Failed to read token: %v", err)
		}
		fmt.Printf("Token stored: %s\n", maskToken(token))

	case "clear":
		if err := storage.DeleteToken(dir); err != nil {
			log.Fatalf("Failed to delete token: %v", err)
		}
		fmt.Println("Token cleared.")

	default:
		fmt.Fprintf(os.Stderr, "Unknown token command: %s\n\n", os.Args[2])
		printTokenUsage()
		os.Exit(1)
	}
}

func printTokenUsage() {
	fmt.Println("Usage: blunderlab token <set|show|clear>")
	fmt.Println()
	fmt.Println("  set <token>  - Seal and store a Lichess API token")
	fmt.Println("  show         - Show whether a token is stored (masked)")
	fmt.Println("  clear        - Delete the stored token")
	fmt.Println()
	fmt.Println("The token file is encrypted with $BLUNDERLAB_PASSPHRASE.")
}

// maskToken hides all but a short prefix of the token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-4)
}
