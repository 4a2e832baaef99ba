// Package config loads local environment overrides before flags are parsed.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// Output is where warnings are written
var Output io.Writer = os.Stdout

// Warning prints a highlighted warning
func Warning(message string) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintln(Output, yellow("[WARN] "+message))
}

// LoadEnv loads a .env file when APP_ENV is "development". Variables already
// set in the environment win over the file.
func LoadEnv(filenames ...string) {
	if os.Getenv("APP_ENV") != "development" {
		return
	}

	if err := godotenv.Load(filenames...); err != nil {
		Warning("Failed to load .env file. Continuing without.")
	}
}

// EnvVariable returns the value of key and whether it was set to something non-empty
func EnvVariable(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != ""
}
