// Command tokengen mints a service token for an API client. The bot layer
// and admin tooling authenticate with these; run it once per client and put
// the token in that client's environment.
//
//	JWT_SECRET=... go run ./cmd/tokengen -client bot -role service
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ironsan2kk-pixel/back-sub000/internal/auth"
)

func main() {
	clientID := flag.String("client", "", "client identifier embedded in the token")
	role := flag.String("role", "service", "token role: service or admin")
	flag.Parse()

	if *clientID == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -client is required")
		os.Exit(2)
	}
	if *role != "service" && *role != "admin" {
		fmt.Fprintln(os.Stderr, "tokengen: -role must be service or admin")
		os.Exit(2)
	}

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")

	token, err := auth.GenerateServiceToken(*clientID, *role, secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
