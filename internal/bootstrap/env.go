package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
)

// Loadenv loads a local .env file if present. Runs before the fx container
// is built so every provider sees the same environment.
func Loadenv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment")
	}
}
