package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type BotState struct {
	bot      *Bot
	mu       sync.Mutex
	sessions map[int64]*ChatSession
}

func (b *Bot) newBotState() *BotState {
	return &BotState{
		bot:      b,
		sessions: make(map[int64]*ChatSession),
	}
}

func (bs *BotState) getSession(chatID int64) *ChatSession {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if session, ok := bs.sessions[chatID]; ok {
		return session
	}
	session := newChatSession(chatID, bs.bot.tg, bs.bot)
	session.StartWorker()
	bs.sessions[chatID] = session
	log.Info().Int64("chatId", chatID).Msg("chat session started")
	return session
}

// Shutdown stops all session workers.
func (bs *BotState) Shutdown() {
	bs.mu.Lock()
	sessions := make([]*ChatSession, 0, len(bs.sessions))
	for _, session := range bs.sessions {
		sessions = append(sessions, session)
	}
	bs.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
	log.Info().Int("count", len(sessions)).Msg("stopped all session workers")
}
