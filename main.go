package main

import (
	"github.com/whisper786/chat/cmd"
	"github.com/whisper786/chat/internal/logging"
)

func main() {
	logging.Init(nil)
	cmd.Execute()
}
