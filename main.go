package main

import (
	"log"
	"os"

	"github.com/csvchat/csvchat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Println("ERROR:", err)
		os.Exit(1)
	}
}
