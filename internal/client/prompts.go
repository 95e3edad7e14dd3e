package client

import "fmt"

// Параметры генерации для двух режимов подсказок
const (
	condenseTemperature = 0.3
	condenseTopP        = 0.9
	condenseMaxTokens   = 40

	replyTemperature = 0
	replyTopP        = 0.1
	replyMaxTokens   = 30
)

// CondensePrompt запрос на сокращение инструкции
func CondensePrompt(instruction string, maxWords int) string {
	return fmt.Sprintf("Rewrite the following driving instruction so it is under %d words, "+
		"clear and TTS-friendly. Keep units.\n\nInstruction: %q", maxWords, instruction)
}
