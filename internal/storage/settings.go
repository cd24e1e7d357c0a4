package storage

import (
	"database/sql"
	"fmt"
)

// SetChatPersona stores the persona chosen in a chat.
func (s *SQLiteStore) SetChatPersona(chatID int64, persona string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
	INSERT INTO chat_settings (chat_id, persona)
	VALUES (?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET
		persona = excluded.persona;
	`, chatID, persona)
	if err != nil {
		return fmt.Errorf("failed to set chat persona: %w", err)
	}
	return nil
}

// GetChatPersona returns the persona chosen in a chat.
// Returns empty string if not set.
func (s *SQLiteStore) GetChatPersona(chatID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var persona sql.NullString
	err := s.db.QueryRow(
		"SELECT persona FROM chat_settings WHERE chat_id = ?",
		chatID,
	).Scan(&persona)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query chat persona: %w", err)
	}

	return persona.String, nil
}
