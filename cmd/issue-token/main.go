// Command issue-token prints a bearer token for an owner, signed with
// JWT_SECRET. It is meant for local development and smoke tests.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"spendwise/internal/cli"
	"spendwise/internal/config"
	apphttp "spendwise/internal/http"
)

func main() {
	owner := flag.String("owner", "", "owner id put in the userId claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateSecret)

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -owner ID [-ttl 24h]")
		os.Exit(2)
	}

	token, err := apphttp.IssueToken([]byte(cfg.JWTSecret), *owner, *ttl)
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
