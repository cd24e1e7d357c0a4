package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Command defines a bot command and its Telegram menu description.
type Command struct {
	Name        string
	Description string
}

var botCommands = []Command{
	{Name: "kurisu", Description: "クリスに切り替え"},
	{Name: "marin", Description: "まりんに切り替え"},
	{Name: "help", Description: "使い方を表示"},
}

// RegisterCommands sets the bot's command menu in Telegram.
func RegisterCommands(tg BotAPI) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := tg.Request(config); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
