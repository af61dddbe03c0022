package store

import (
	"fmt"
	"time"

	"github.com/agentd/core/pkg/ids"
)

// AppendMessage appends msg to the session's head, minting an id and
// timestamp if unset. Every message's Parts must be non-empty after
// normalization (§3 invariant 5); callers should normalize before
// calling this.
func (s *Store) AppendMessage(sessionID string, msg Message) (Message, error) {
	if len(msg.Parts) == 0 {
		return Message{}, fmt.Errorf("store: message has no parts")
	}
	if msg.ID == "" {
		msg.ID = ids.New(ids.PrefixMessage)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var appended Message
	_, err := s.UpdateSession(sessionID, func(sess *Session) {
		sess.Messages = append(sess.Messages, msg)
		appended = msg
	})
	if err != nil {
		return Message{}, err
	}
	return appended, nil
}

// AddTurn creates a pending turn and sets the session's last_turn_id.
func (s *Store) AddTurn(sessionID string) (string, error) {
	turnID := ids.New(ids.PrefixTurn)
	now := time.Now().UTC()
	turn := Turn{ID: turnID, Status: TurnPending, CreatedAt: now, UpdatedAt: now}

	_, err := s.UpdateSession(sessionID, func(sess *Session) {
		sess.Turns = append(sess.Turns, turn)
		sess.LastTurnID = turnID
	})
	if err != nil {
		return "", err
	}
	return turnID, nil
}

// UpdateTurn mutates the named turn in place via fn, stamping UpdatedAt.
func (s *Store) UpdateTurn(sessionID, turnID string, fn func(*Turn)) error {
	_, err := s.UpdateSession(sessionID, func(sess *Session) {
		for i := range sess.Turns {
			if sess.Turns[i].ID == turnID {
				fn(&sess.Turns[i])
				sess.Turns[i].UpdatedAt = time.Now().UTC()
				return
			}
		}
	})
	return err
}
