// mavoice - голосовая диктовка через Groq и голосовой ассистент Gemini Live.
//
// Работает в системном трее. Ctrl+Shift+Space включает диктовку,
// Ctrl+Shift+L подключает ассистента.
package main

import (
	"fmt"
	"os"
)

// Version устанавливается при сборке через -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mavoice:", err)
		os.Exit(1)
	}
}
