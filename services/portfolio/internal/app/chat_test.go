package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"portfolioai/pkg/domain"
	"portfolioai/pkg/storage"
)

func TestCreateChatScenario(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	env.generator.replies = []string{"<html>Jane</html>"}

	created, err := env.app.CreateChat(context.Background(), user, CreateChatInput{
		Title:       "My Portfolio",
		Description: "  Senior engineer  ",
		Filename:    "resume.txt",
		Document:    []byte("Jane Doe, 5 years experience"),
	})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	p := env.generator.lastPrompt()
	if !strings.Contains(p, "Jane Doe, 5 years experience") || !strings.Contains(p, "Senior engineer") {
		t.Fatalf("initial prompt missing resume or description: %q", p)
	}
	if created.Chat.Title != "My Portfolio" || created.Chat.PageLocator != "" {
		t.Fatalf("unexpected chat: %+v", created.Chat)
	}
	bucket, key, err := storage.ParseLocator(created.Chat.ResumeLocator)
	if err != nil {
		t.Fatalf("parse resume locator: %v", err)
	}
	if bucket != testInputBucket || !strings.HasPrefix(key, "resumes/"+user.ID+"/") || !strings.HasSuffix(key, "/resume.txt") {
		t.Fatalf("unexpected resume locator %q", created.Chat.ResumeLocator)
	}
	stored, err := env.objects.GetText(context.Background(), bucket, key)
	if err != nil || stored != "Jane Doe, 5 years experience" {
		t.Fatalf("resume text not stored: %q err=%v", stored, err)
	}
	if created.InitialMessage.Sender != domain.SenderBot || created.InitialMessage.Text != "<html>Jane</html>" {
		t.Fatalf("unexpected initial message: %+v", created.InitialMessage)
	}

	msgs, err := env.app.ListMessages(context.Background(), user, created.Chat.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Sender != domain.SenderBot {
		t.Fatalf("expected exactly one bot message, got %+v", msgs)
	}
}

func TestCreateChatValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	cases := []CreateChatInput{
		{Title: " ", Filename: "cv.txt", Document: []byte("x")},
		{Title: "No file"},
	}
	for _, in := range cases {
		if _, err := env.app.CreateChat(context.Background(), user, in); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("expected ErrMissingFields for %+v, got %v", in, err)
		}
	}
	if env.generator.calls() != 0 {
		t.Fatalf("validation failures must not reach the model")
	}
}

func TestCreateChatUnreadableDocumentContinues(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	created, err := env.app.CreateChat(context.Background(), user, CreateChatInput{
		Title:    "Broken",
		Filename: "cv.pdf",
		Document: []byte("%PDF-1.4 truncated"),
	})
	if err != nil {
		t.Fatalf("create chat should continue with empty text: %v", err)
	}
	bucket, key, _ := storage.ParseLocator(created.Chat.ResumeLocator)
	stored, _ := env.objects.GetText(context.Background(), bucket, key)
	if stored != "" {
		t.Fatalf("expected empty resume text, got %q", stored)
	}
	if created.InitialMessage.ID == "" {
		t.Fatalf("expected bot message")
	}
}

func TestCreateChatUploadFailureCreatesNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	env.objects.failPut = true
	_, err := env.app.CreateChat(context.Background(), user, CreateChatInput{
		Title: "T", Filename: "cv.txt", Document: []byte("resume"),
	})
	if !errors.Is(err, ErrResumeUpload) {
		t.Fatalf("expected ErrResumeUpload, got %v", err)
	}
	chats, _ := env.store.ListChatsByUser(context.Background(), user.ID)
	if len(chats) != 0 || env.generator.calls() != 0 {
		t.Fatalf("nothing should be created, chats=%d calls=%d", len(chats), env.generator.calls())
	}
}

func TestCreateChatGenerationFailureKeepsChat(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	env.generator.err = errors.New("provider 500")
	created, err := env.app.CreateChat(context.Background(), user, CreateChatInput{
		Title: "T", Filename: "cv.txt", Document: []byte("resume"),
	})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if created.Chat.ID == "" {
		t.Fatalf("chat should be returned even when generation fails")
	}
	chats, _ := env.store.ListChatsByUser(context.Background(), user.ID)
	if len(chats) != 1 {
		t.Fatalf("chat record should persist, got %d", len(chats))
	}
	msgs, _ := env.store.ListMessagesByChat(context.Background(), created.Chat.ID)
	if len(msgs) != 0 {
		t.Fatalf("expected zero messages, got %d", len(msgs))
	}
}

func createTestChat(t *testing.T, env *testEnv, user domain.User) domain.Chat {
	t.Helper()
	created, err := env.app.CreateChat(context.Background(), user, CreateChatInput{
		Title:       "My Portfolio",
		Description: "Senior engineer",
		Filename:    "resume.txt",
		Document:    []byte("Jane Doe, 5 years experience"),
	})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return created.Chat
}

func TestSendMessageBuildsTranscript(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	env.generator.replies = []string{"<html>v1</html>", "<html>v2</html>"}
	chat := createTestChat(t, env, user)

	reply, err := env.app.SendMessage(context.Background(), user, chat.ID, "  make it blue ")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply.Sender != domain.SenderBot || reply.Text != "<html>v2</html>" || reply.CreatedAt.IsZero() {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	p := env.generator.lastPrompt()
	for _, want := range []string{
		"bot: <html>v1</html>\nuser:   make it blue ",
		"Resume Data: Jane Doe, 5 years experience",
		"User Input: make it blue",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("turn prompt missing %q:\n%s", want, p)
		}
	}

	msgs, _ := env.app.ListMessages(context.Background(), user, chat.ID)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	wantSenders := []domain.Sender{domain.SenderBot, domain.SenderUser, domain.SenderBot}
	for i, m := range msgs {
		if m.Sender != wantSenders[i] || m.Seq != int64(i+1) {
			t.Fatalf("message %d = %+v", i, m)
		}
	}
}

func TestSendMessageMalformedLocatorAbortsBeforeModel(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	chat, _ := domain.NewChat(user.ID, "Bad", "", "https://badurl/not-matching")
	chat, err := env.store.CreateChat(context.Background(), chat)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	_, err = env.app.SendMessage(context.Background(), user, chat.ID, "hello")
	if !errors.Is(err, storage.ErrMalformedLocator) {
		t.Fatalf("expected ErrMalformedLocator, got %v", err)
	}
	if env.generator.calls() != 0 {
		t.Fatalf("model must not be called, got %d calls", env.generator.calls())
	}
	msgs, _ := env.store.ListMessagesByChat(context.Background(), chat.ID)
	if len(msgs) != 1 || msgs[0].Sender != domain.SenderUser {
		t.Fatalf("only the user message should be stored, got %+v", msgs)
	}
}

func TestSendMessageProviderErrorAppendsNoReply(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	chat := createTestChat(t, env, user)
	env.generator.err = errors.New("provider 500")

	_, err := env.app.SendMessage(context.Background(), user, chat.ID, "again")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	msgs, _ := env.app.ListMessages(context.Background(), user, chat.ID)
	if len(msgs) != 2 || msgs[1].Sender != domain.SenderUser {
		t.Fatalf("expected bot + unanswered user message, got %+v", msgs)
	}
}

func TestSendMessageResumeFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	chat := createTestChat(t, env, user)
	env.objects.failGet = true
	calls := env.generator.calls()
	if _, err := env.app.SendMessage(context.Background(), user, chat.ID, "hi"); !errors.Is(err, ErrResumeFetch) {
		t.Fatalf("expected ErrResumeFetch, got %v", err)
	}
	if env.generator.calls() != calls {
		t.Fatalf("model must not be called after a failed resume fetch")
	}
}

func TestChatOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	intruder := env.createUser(t, "intruder@example.com")
	chat := createTestChat(t, env, owner)
	ctx := context.Background()

	if _, err := env.app.SendMessage(ctx, intruder, chat.ID, "hi"); !errors.Is(err, ErrChatForbidden) {
		t.Fatalf("send: expected ErrChatForbidden, got %v", err)
	}
	if _, err := env.app.ListMessages(ctx, intruder, chat.ID); !errors.Is(err, ErrChatForbidden) {
		t.Fatalf("list: expected ErrChatForbidden, got %v", err)
	}
	if _, err := env.app.Publish(ctx, intruder, chat.ID, "<html/>"); !errors.Is(err, ErrChatForbidden) {
		t.Fatalf("publish: expected ErrChatForbidden, got %v", err)
	}
	if _, err := env.app.SendMessage(ctx, owner, "missing", "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	msgs, _ := env.store.ListMessagesByChat(ctx, chat.ID)
	if len(msgs) != 1 {
		t.Fatalf("forbidden calls must not write, got %d messages", len(msgs))
	}
}

func TestListChatsSummaries(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	other := env.createUser(t, "other@example.com")
	env.generator.replies = []string{"<html>first</html>"}
	withReply := createTestChat(t, env, user)

	empty, _ := domain.NewChat(user.ID, "Empty", "", storage.Locator(testInputBucket, "resumes/x.txt"))
	empty, _ = env.store.CreateChat(context.Background(), empty)
	_ = createTestChat(t, env, other)

	summaries, err := env.app.ListChats(context.Background(), user)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %+v", summaries)
	}
	byID := map[string]domain.ChatSummary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}
	if s := byID[withReply.ID]; s.LastMessage != "<html>first</html>" || s.LastUpdated == "" {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s := byID[empty.ID]; s.LastMessage != "" || s.LastUpdated != "" || s.Title != "Empty" {
		t.Fatalf("empty chat should have blank summary: %+v", s)
	}
}

func TestConcurrentSendsGetDistinctSequence(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	chat := createTestChat(t, env, user)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.app.SendMessage(context.Background(), user, chat.ID, fmt.Sprintf("turn %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	msgs, _ := env.app.ListMessages(context.Background(), user, chat.ID)
	if len(msgs) != 1+2*n {
		t.Fatalf("expected %d messages, got %d", 1+2*n, len(msgs))
	}
	seen := map[int64]bool{}
	for i, m := range msgs {
		if seen[m.Seq] {
			t.Fatalf("duplicate seq %d", m.Seq)
		}
		seen[m.Seq] = true
		if i > 0 && msgs[i-1].Seq >= m.Seq {
			t.Fatalf("transcript not strictly ordered at %d", i)
		}
	}
}

func TestSendMessageWithDottedInputBucket(t *testing.T) {
	env := newTestEnvWithBuckets(t, "resumes.example.com", "pages.example.com")
	user := env.createUser(t, "jane@example.com")
	chat := createTestChat(t, env, user)
	if !strings.HasPrefix(chat.ResumeLocator, "https://resumes.example.com.s3.amazonaws.com/") {
		t.Fatalf("unexpected resume locator %q", chat.ResumeLocator)
	}
	if _, err := env.app.SendMessage(context.Background(), user, chat.ID, "hello"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if !strings.Contains(env.generator.lastPrompt(), "Resume Data: Jane Doe, 5 years experience") {
		t.Fatalf("resume text not fetched from dotted bucket:\n%s", env.generator.lastPrompt())
	}
}

func TestChatsSharingFileNameKeepTheirOwnResume(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "jane@example.com")
	ctx := context.Background()
	create := func(title, text string) domain.Chat {
		t.Helper()
		created, err := env.app.CreateChat(ctx, user, CreateChatInput{
			Title:    title,
			Filename: "resume.txt",
			Document: []byte(text),
		})
		if err != nil {
			t.Fatalf("create chat %s: %v", title, err)
		}
		return created.Chat
	}
	alice := create("Alice", "ALICE RESUME")
	bob := create("Bob", "BOB RESUME")
	if alice.ResumeLocator == bob.ResumeLocator {
		t.Fatalf("chats must not share a resume object: %q", alice.ResumeLocator)
	}

	if _, err := env.app.SendMessage(ctx, user, alice.ID, "hello"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	p := env.generator.lastPrompt()
	if !strings.Contains(p, "ALICE RESUME") || strings.Contains(p, "BOB RESUME") {
		t.Fatalf("prompt used the wrong resume:\n%s", p)
	}
}
