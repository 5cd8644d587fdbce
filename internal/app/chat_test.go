package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"tubemindai/pkg/domain"
)

func (env *testEnv) videoWithNotes(t *testing.T, user domain.User) domain.Video {
	t.Helper()
	video, err := env.app.GenerateVideoNotes(context.Background(), user, testVideoURL)
	if err != nil {
		t.Fatalf("generate video: %v", err)
	}
	return video
}

func TestSendMessageRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "Alice", "alice@test.com", "password1")
	video := env.videoWithNotes(t, user)

	msg, err := env.app.SendMessage(context.Background(), user, domain.KindVideo, video.ID, "what is this about?")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if msg.Message != "what is this about?" || msg.Response != "grounded answer" || !msg.Answered {
		t.Fatalf("unexpected turn %+v", msg)
	}

	history, total, err := env.app.ChatHistory(user, domain.KindVideo, video.ID, 0, 10)
	if err != nil || total != 1 || len(history) != 1 {
		t.Fatalf("history: total=%d len=%d err=%v", total, len(history), err)
	}
}

func TestSendMessageKeepsUserTurnOnModelFailure(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "Alice", "alice@test.com", "password1")
	video := env.videoWithNotes(t, user)

	env.gen.broken = errStubBroken
	msg, err := env.app.SendMessage(context.Background(), user, domain.KindVideo, video.ID, "does this survive?")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if msg.ID == 0 || msg.Answered {
		t.Fatalf("expected persisted unanswered turn, got %+v", msg)
	}

	history, total, err := env.app.ChatHistory(user, domain.KindVideo, video.ID, 0, 10)
	if err != nil || total != 1 {
		t.Fatalf("history after failure: total=%d err=%v", total, err)
	}
	if history[0].Message != "does this survive?" || history[0].Answered {
		t.Fatalf("unexpected surviving turn %+v", history[0])
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "Alice", "alice@test.com", "password1")
	video := env.videoWithNotes(t, user)

	if _, err := env.app.SendMessage(context.Background(), user, domain.KindVideo, video.ID, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty message, got %v", err)
	}
	if _, err := env.app.SendMessage(context.Background(), user, "book", video.ID, "hi"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown kind, got %v", err)
	}
}

func TestConcurrentSendMessagesStayOrdered(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "Alice", "alice@test.com", "password1")
	video := env.videoWithNotes(t, user)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.app.SendMessage(context.Background(), user, domain.KindVideo, video.ID, fmt.Sprintf("question %d", i))
			if err != nil {
				t.Errorf("send message %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	history, total, err := env.app.ChatHistory(user, domain.KindVideo, video.ID, 0, 100)
	if err != nil || total != n {
		t.Fatalf("history: total=%d err=%v", total, err)
	}
	for i := 1; i < len(history); i++ {
		if history[i].ID <= history[i-1].ID {
			t.Fatalf("history not strictly ordered at %d: %d then %d", i, history[i-1].ID, history[i].ID)
		}
		if !history[i].Answered {
			t.Fatalf("turn %d left unanswered", i)
		}
	}
}

func TestChatHistories(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "Alice", "alice@test.com", "password1")
	video := env.videoWithNotes(t, user)
	doc := env.addPDF(t, user.ID, "paper.pdf", "document body")

	ctx := context.Background()
	if _, err := env.app.SendMessage(ctx, user, domain.KindVideo, video.ID, "about the video"); err != nil {
		t.Fatalf("video chat: %v", err)
	}
	if _, err := env.app.SendMessage(ctx, user, domain.KindPDF, doc.ID, "about the pdf"); err != nil {
		t.Fatalf("pdf chat: %v", err)
	}
	if _, err := env.app.SendMessage(ctx, user, domain.KindPDF, doc.ID, "a follow-up"); err != nil {
		t.Fatalf("pdf chat: %v", err)
	}

	videoHistories, err := env.app.ChatHistories(user, domain.KindVideo)
	if err != nil || len(videoHistories) != 1 {
		t.Fatalf("video histories: len=%d err=%v", len(videoHistories), err)
	}
	if videoHistories[0].ResourceID != video.ID || videoHistories[0].MessageCount != 1 {
		t.Fatalf("unexpected video history %+v", videoHistories[0])
	}

	pdfHistories, err := env.app.ChatHistories(user, domain.KindPDF)
	if err != nil || len(pdfHistories) != 1 {
		t.Fatalf("pdf histories: len=%d err=%v", len(pdfHistories), err)
	}
	if pdfHistories[0].MessageCount != 2 || pdfHistories[0].LastMessage != "a follow-up" {
		t.Fatalf("unexpected pdf history %+v", pdfHistories[0])
	}
}

func TestDeleteChatMessageOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signUp(t, "Alice", "alice@test.com", "password1")
	bob, _ := env.signUp(t, "Bob", "bob@test.com", "password1")
	video := env.videoWithNotes(t, alice)

	msg, err := env.app.SendMessage(context.Background(), alice, domain.KindVideo, video.ID, "hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if err := env.app.DeleteChatMessage(bob, msg.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := env.app.DeleteChatMessage(alice, msg.ID); err != nil {
		t.Fatalf("delete own message: %v", err)
	}
	if err := env.app.DeleteChatMessage(alice, msg.ID); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound after delete, got %v", err)
	}
}

func TestDeleteAllChats(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.signUp(t, "Alice", "alice@test.com", "password1")
	video := env.videoWithNotes(t, user)
	doc := env.addPDF(t, user.ID, "paper.pdf", "document body")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := env.app.SendMessage(ctx, user, domain.KindVideo, video.ID, "q"); err != nil {
			t.Fatalf("video chat: %v", err)
		}
	}
	if _, err := env.app.SendMessage(ctx, user, domain.KindPDF, doc.ID, "q"); err != nil {
		t.Fatalf("pdf chat: %v", err)
	}

	if err := env.app.DeleteAllChats(user, domain.KindVideo); err != nil {
		t.Fatalf("delete all video chats: %v", err)
	}
	_, total, _ := env.app.ChatHistory(user, domain.KindVideo, video.ID, 0, 10)
	if total != 0 {
		t.Fatalf("expected video chats cleared, total=%d", total)
	}
	// PDF conversations are untouched.
	_, total, _ = env.app.ChatHistory(user, domain.KindPDF, doc.ID, 0, 10)
	if total != 1 {
		t.Fatalf("expected pdf chats intact, total=%d", total)
	}
}
