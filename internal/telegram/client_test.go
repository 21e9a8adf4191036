package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/model"
)

func TestSendMessage(t *testing.T) {
	is := is.New(t)

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotChat = r.URL.Query().Get("chat_id")
		gotText = r.URL.Query().Get("text")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL(srv.URL)
	err := c.SendMessageViaHTTP(context.Background(), "token", "100", "hello")
	is.NoErr(err)
	is.Equal(gotPath, "/bottoken/sendMessage")
	is.Equal(gotChat, "100")
	is.Equal(gotText, "hello")
}

func TestSendMessageRejected(t *testing.T) {
	is := is.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewWithBaseURL(srv.URL).SendMessageViaHTTP(context.Background(), "token", "100", "hello")

	var serr model.ServiceError
	is.True(errors.As(err, &serr))
	is.Equal(serr.Message, "chat not found")
	is.Equal(serr.Code, http.StatusBadRequest)
}

func TestSendMessageValidation(t *testing.T) {
	is := is.New(t)
	c := NewWithBaseURL("http://127.0.0.1:1")

	is.True(c.SendMessageViaHTTP(context.Background(), "", "1", "text") != nil)
	is.True(c.SendMessageViaHTTP(context.Background(), "key", "", "text") != nil)
	is.True(c.SendMessageViaHTTP(context.Background(), "key", "1", "") != nil)
}

type recordingClient struct {
	mu    sync.Mutex
	texts []string
}

func (c *recordingClient) SendMessageViaHTTP(_ context.Context, _, _, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.texts = append(c.texts, text)

	return nil
}

func (c *recordingClient) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.texts...)
}

func TestNotifierSendsTransitionsOnly(t *testing.T) {
	is := is.New(t)

	rc := &recordingClient{}
	n := NewNotifier(rc, "key", "1", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = n.Run(ctx) }()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	obs := model.Observation{Name: "Router1", Address: "10.0.0.1", ObservedAt: at}

	first := obs
	first.Previous, first.Status = model.StatusUnknown, model.StatusActive
	n.Handle(first)

	same := obs
	same.Previous, same.Status = model.StatusActive, model.StatusActive
	n.Handle(same)

	down := obs
	down.Previous, down.Status = model.StatusActive, model.StatusInactive
	n.Handle(down)

	deadline := time.Now().Add(time.Second)
	for len(rc.Texts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 5)
	}

	time.Sleep(time.Millisecond * 20)
	is.Equal(rc.Texts(), []string{"Router1 (10.0.0.1) is inactive since 2024-05-01 10:00:00"})
}
