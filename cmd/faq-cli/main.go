// Command faq-cli answers FAQ questions from the terminal using the same
// resolution pipeline as the web server.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
