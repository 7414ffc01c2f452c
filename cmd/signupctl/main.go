package main

import (
	"os"

	"github.com/go-wa-onboarding/cmd/signupctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
