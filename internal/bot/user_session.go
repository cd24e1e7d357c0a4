package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// SessionMessage is a message queued for a chat's session worker.
type SessionMessage struct {
	Ctx     context.Context
	Message *tgbotapi.Message
	Done    chan struct{} // closed when processing is complete
}

// MessageSender abstracts the ability to send Telegram messages.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler processes messages for a session.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *ChatSession, msg SessionMessage)
}

// ChatSession serializes work for one chat so that a second photo waits for
// the first to finish.
type ChatSession struct {
	chatID  int64
	sender  MessageSender
	handler MessageHandler
	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newChatSession(chatID int64, sender MessageSender, handler MessageHandler) *ChatSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatSession{
		chatID:  chatID,
		sender:  sender,
		handler: handler,
		inbox:   make(chan SessionMessage, 10),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *ChatSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.chatID
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Int64("chatId", s.chatID).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Debug().Int64("chatId", s.chatID).Int("messageId", sent.MessageID).Msg("sent message")
	}
	return sent
}

func (s *ChatSession) reply(text string, a ...any) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{
		Text:      formatReplyText(text, a...),
		ParseMode: tgbotapi.ModeMarkdown,
	})
}

// replyMarkdown sends preformatted Markdown without format verbs.
func (s *ChatSession) replyMarkdown(text string) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	})
}

// replyPlain sends text as is, for persona lines that may contain Markdown
// control characters.
func (s *ChatSession) replyPlain(text string) tgbotapi.Message {
	return s.replyWithMessage(tgbotapi.MessageConfig{Text: text})
}

func (s *ChatSession) replyWithError(format string, err error) tgbotapi.Message {
	log.Error().Err(err).Int64("chatId", s.chatID).Send()
	return s.reply(format, escapeMarkdown(err.Error()))
}

func (s *ChatSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping)
	// sendChatAction returns a boolean, not a Message
	if _, err := s.sender.Request(action); err != nil {
		log.Debug().Err(err).Int64("chatId", s.chatID).Msg("failed to send typing action")
	}
}

// startTypingLoop keeps the typing indicator visible until ctx is cancelled.
// Telegram expires it after about five seconds.
func (s *ChatSession) startTypingLoop(ctx context.Context) {
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *ChatSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

func (s *ChatSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

func (s *ChatSession) processMessage(msg SessionMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int64("chatId", s.chatID).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	s.handler.HandleSessionMessage(msg.Ctx, s, msg)
}

// Send queues a message without waiting for it to be processed.
func (s *ChatSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
func (s *ChatSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

func (s *ChatSession) Stop() {
	s.cancel()
	s.wg.Wait()
}
