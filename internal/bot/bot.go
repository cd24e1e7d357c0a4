package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/service"
	"github.com/rs/zerolog/log"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Pipeline is the analysis pipeline the bot drives.
type Pipeline interface {
	AnalyzeImage(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error)
	Recommend(ctx context.Context, items []fashion.DetectedItem, obs *fashion.Observation, persona fashion.Persona) (*service.Recommendation, error)
}

// PersonaStore remembers the persona chosen in each chat.
type PersonaStore interface {
	SetChatPersona(chatID int64, persona string) error
	GetChatPersona(chatID int64) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg             BotAPI
	pipeline       Pipeline
	personas       PersonaStore
	defaultPersona fashion.PersonaID
	downloader     *ImageDownloader
	state          *BotState
}

// NewBot creates a Bot. personas may be nil, in which case persona switches
// are not remembered.
func NewBot(tg BotAPI, pipeline Pipeline, personas PersonaStore, defaultPersona fashion.PersonaID) *Bot {
	if _, ok := fashion.ParsePersona(string(defaultPersona)); !ok {
		defaultPersona = fashion.DefaultPersona
	}
	b := &Bot{
		tg:             tg,
		pipeline:       pipeline,
		personas:       personas,
		defaultPersona: defaultPersona,
		downloader:     NewImageDownloader(),
	}
	b.state = b.newBotState()
	return b
}

// HandleUpdate queues the update on its chat's session worker.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync waits for the message to be processed. Used in tests.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}

	log.Info().
		Int64("chatId", message.Chat.ID).
		Str("text", message.Text).
		Int("photos", len(message.Photo)).
		Msg("got message")

	session := b.state.getSession(message.Chat.ID)
	msg := SessionMessage{Ctx: ctx, Message: message}
	if sync {
		session.SendSync(msg)
	} else {
		session.Send(msg)
	}
}

// HandleSessionMessage is called by the session worker goroutine.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *ChatSession, msg SessionMessage) {
	message := msg.Message
	switch {
	case len(message.Photo) > 0:
		b.handlePhoto(ctx, session, message)
	case message.IsCommand():
		b.handleCommand(session, message.Command())
	default:
		session.reply(MsgSendPhoto)
	}
}

func (b *Bot) handleCommand(session *ChatSession, command string) {
	switch command {
	case "start":
		session.replyPlain(b.chatPersona(session.chatID).Lines.Greeting)
		session.reply(MsgSendPhoto)
	case "help":
		session.reply(MsgHelp)
	case string(fashion.PersonaKurisu), string(fashion.PersonaMarin):
		persona := fashion.MustPersona(fashion.PersonaID(command))
		if b.personas != nil {
			if err := b.personas.SetChatPersona(session.chatID, command); err != nil {
				log.Error().Err(err).Int64("chatId", session.chatID).Msg("failed to save chat persona")
			}
		}
		session.reply(MsgPersonaChanged, escapeMarkdown(persona.Name))
		session.replyPlain(persona.Lines.Greeting)
	default:
		session.reply(MsgUnknownCommand)
	}
}

func (b *Bot) chatPersona(chatID int64) fashion.Persona {
	if b.personas != nil {
		id, err := b.personas.GetChatPersona(chatID)
		if err != nil {
			log.Warn().Err(err).Int64("chatId", chatID).Msg("failed to load chat persona")
		} else if p, ok := fashion.ParsePersona(id); ok {
			return p
		}
	}
	return fashion.MustPersona(b.defaultPersona)
}

func (b *Bot) handlePhoto(ctx context.Context, session *ChatSession, message *tgbotapi.Message) {
	persona := b.chatPersona(session.chatID)
	ctx = service.WithSource(ctx, service.SourceTelegram)

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	go session.startTypingLoop(typingCtx)

	// Telegram lists photo sizes smallest first.
	photo := message.Photo[len(message.Photo)-1]
	image, err := b.downloader.DownloadFromTelegramFileID(ctx, b.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		session.replyWithError(MsgDownloadFailed, err)
		return
	}

	session.replyPlain(persona.Lines.Thinking)

	analysis, err := b.pipeline.AnalyzeImage(ctx, image, persona, service.Progress{})
	if err != nil {
		session.replyWithError(MsgAnalysisFailed, err)
		return
	}
	if len(analysis.Items) == 0 {
		session.reply(MsgNoItemsDetected)
		return
	}

	session.replyPlain(persona.Lines.Analysis)
	session.replyMarkdown(formatAnalysis(analysis))

	rec, err := b.pipeline.Recommend(ctx, analysis.Items, &analysis.Observation, persona)
	if err != nil {
		session.replyWithError(MsgRecommendFailed, err)
		return
	}

	session.replyPlain(persona.Lines.Recommendation)
	session.replyWithMessage(tgbotapi.MessageConfig{
		Text:                  formatProducts(rec),
		ParseMode:             tgbotapi.ModeMarkdown,
		DisableWebPagePreview: true,
	})
}

// Shutdown stops all chat session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}
