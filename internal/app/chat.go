package app

import (
	"context"
	"fmt"
	"strings"

	"tubemindai/pkg/domain"
	"tubemindai/pkg/notes"
)

const maxChatMessageLength = 4000

// SendMessage appends a user turn to the resource's conversation and asks
// the model for a grounded answer. Turns for the same (user, resource) pair
// run one at a time. The user's message is persisted before the model call,
// so an LLM failure never loses it; the row simply stays unanswered.
func (a *App) SendMessage(ctx context.Context, user domain.User, kind domain.ResourceKind, resourceID uint, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if len(text) > maxChatMessageLength {
		return domain.ChatMessage{}, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, maxChatMessageLength)
	}
	src, result, err := a.resourceSource(user, kind, resourceID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	unlock := a.chatLocks.lock(fmt.Sprintf("%d:%s:%d", user.ID, kind, resourceID))
	defer unlock()

	history, err := a.recentTurns(user.ID, kind, resourceID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	msg, err := a.store.AppendChatMessage(domain.ChatMessage{
		UserID:        user.ID,
		ResourceKind:  kind,
		ResourceID:    resourceID,
		Message:       text,
		IsUserMessage: true,
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}

	answer, err := a.gen.GenerateText(ctx, notes.ChatSystemPrompt(src, result), chatUserPrompt(history, text))
	if err != nil {
		a.logger.Warn("chat generation failed", "user_id", user.ID, "kind", kind, "resource_id", resourceID, "error", err)
		return msg, generationError(err)
	}
	answer = strings.TrimSpace(answer)
	if err := a.store.SetChatResponse(msg.ID, answer); err != nil {
		return msg, err
	}
	msg.Response = answer
	msg.Answered = true
	return msg, nil
}

// recentTurns loads the newest context-window turns in chronological order.
func (a *App) recentTurns(userID uint, kind domain.ResourceKind, resourceID uint) ([]domain.ChatMessage, error) {
	_, total, err := a.store.ListChatMessages(userID, kind, resourceID, 0, 1)
	if err != nil {
		return nil, err
	}
	skip := 0
	if total > a.chatContextTurns {
		skip = total - a.chatContextTurns
	}
	history, _, err := a.store.ListChatMessages(userID, kind, resourceID, skip, a.chatContextTurns)
	return history, err
}

// chatUserPrompt folds recent turns into the prompt so follow-up questions
// keep their context.
func chatUserPrompt(history []domain.ChatMessage, question string) string {
	if len(history) == 0 {
		return question
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "User: %s\n", turn.Message)
		if turn.Answered {
			fmt.Fprintf(&b, "Assistant: %s\n", turn.Response)
		}
	}
	b.WriteString("\nNew question: ")
	b.WriteString(question)
	return b.String()
}

// resourceSource loads the chat grounding material for a resource the user
// may access.
func (a *App) resourceSource(user domain.User, kind domain.ResourceKind, resourceID uint) (notes.Source, *notes.Result, error) {
	switch kind {
	case domain.KindVideo:
		video, err := a.GetVideo(user, resourceID)
		if err != nil {
			return notes.Source{}, nil, err
		}
		return notes.Source{Kind: kind, Title: video.Title, Text: video.Transcript},
			&notes.Result{Summary: video.Summary, KeyPoints: video.KeyPoints, BulletNotes: video.BulletNotes}, nil
	case domain.KindPDF:
		doc, err := a.GetPDF(user, resourceID)
		if err != nil {
			return notes.Source{}, nil, err
		}
		return notes.Source{Kind: kind, Title: doc.FileName, Text: doc.Content},
			&notes.Result{Summary: doc.Summary, KeyPoints: doc.KeyPoints, BulletNotes: doc.BulletNotes}, nil
	default:
		return notes.Source{}, nil, fmt.Errorf("%w: unknown resource kind %q", ErrValidation, kind)
	}
}

// ChatHistory returns the conversation for one resource, oldest first.
func (a *App) ChatHistory(user domain.User, kind domain.ResourceKind, resourceID uint, skip, limit int) ([]domain.ChatMessage, int, error) {
	if _, _, err := a.resourceSource(user, kind, resourceID); err != nil {
		return nil, 0, err
	}
	return a.store.ListChatMessages(user.ID, kind, resourceID, skip, limit)
}

// ChatHistories lists the user's conversations of one kind, latest first.
func (a *App) ChatHistories(user domain.User, kind domain.ResourceKind) ([]domain.ChatHistory, error) {
	return a.store.ListChatHistories(user.ID, kind)
}

// DeleteChatMessage removes a single turn the user owns.
func (a *App) DeleteChatMessage(user domain.User, messageID uint) error {
	msg, found, err := a.store.GetChatMessage(messageID)
	if err != nil {
		return err
	}
	if !found {
		return ErrResourceNotFound
	}
	if msg.UserID != user.ID && !user.IsAdmin {
		return ErrForbidden
	}
	return a.store.DeleteChatMessage(messageID)
}

// DeleteChatsForResource clears the conversation for one resource.
func (a *App) DeleteChatsForResource(user domain.User, kind domain.ResourceKind, resourceID uint) error {
	if _, _, err := a.resourceSource(user, kind, resourceID); err != nil {
		return err
	}
	return a.store.DeleteChatsForResource(kind, resourceID)
}

// DeleteAllChats clears every conversation of one kind for the user.
func (a *App) DeleteAllChats(user domain.User, kind domain.ResourceKind) error {
	return a.store.DeleteChatsForUser(user.ID, kind)
}
