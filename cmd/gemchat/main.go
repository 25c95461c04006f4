// Command gemchat is a streaming terminal chat client for Google Gemini.
package main

import "github.com/diogo/gemchat/internal/commands"

func main() {
	commands.Execute()
}
