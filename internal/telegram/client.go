package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"

	"github.com/ferux/devicewatch/internal/fcontext"
	"github.com/ferux/devicewatch/internal/model"
)

const defaultBaseURL = "https://api.telegram.org"

// Client for interacting with telegram.
type Client interface {
	SendMessageViaHTTP(ctx context.Context, apiKey, chatID, text string) error
}

type client struct {
	c       *http.Client
	baseURL string
}

// New creates new telegram client.
func New() Client {
	return NewWithBaseURL(defaultBaseURL)
}

// NewWithBaseURL creates client talking to another bot api server.
func NewWithBaseURL(baseURL string) Client {
	return &client{
		c:       &http.Client{Timeout: time.Second * 10},
		baseURL: baseURL,
	}
}

func (client *client) SendMessageViaHTTP(ctx context.Context, apiKey, chatID, text string) (err error) {
	logger := zerolog.Ctx(ctx).With().Str("pkg", "telegram").Logger()
	rid := fcontext.RequestID(ctx)

	if len(apiKey) == 0 {
		return model.ServiceError{Message: "api is empty", RequestID: rid, Code: http.StatusBadRequest}
	}

	if len(chatID) == 0 {
		return model.ServiceError{Message: "chat_id is empty", RequestID: rid, Code: http.StatusBadRequest}
	}

	if len(text) == 0 {
		return model.ServiceError{Message: "text is empty", RequestID: rid, Code: http.StatusBadRequest}
	}

	logger.Debug().Str("chat_id", chatID).Str("text", text).Msg("sending to telegram")

	requestURL := fmt.Sprintf("%s/bot%s/sendMessage", client.baseURL, apiKey)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return model.ServiceError{Message: err.Error(), RequestID: rid, Code: http.StatusInternalServerError}
	}

	values := request.URL.Query()
	values.Set("chat_id", chatID)
	values.Set("text", text)

	request.URL.RawQuery = values.Encode()

	response, err := client.c.Do(request)
	if err != nil {
		return model.ServiceError{Message: err.Error(), RequestID: rid, Code: http.StatusInternalServerError}
	}

	responseData, err := io.ReadAll(response.Body)
	// I don't care about error here
	_ = response.Body.Close()

	if err != nil {
		return model.ServiceError{Message: err.Error(), RequestID: rid, Code: http.StatusInternalServerError}
	}

	logger.Debug().RawJSON("response", responseData).Msg("accepted message")

	v, err := fastjson.ParseBytes(responseData)
	if err != nil {
		logger.Error().Err(err).Msg("unable to parse response")

		return model.ServiceError{Message: err.Error(), RequestID: rid, Code: http.StatusInternalServerError}
	}

	if !v.GetBool("ok") {
		return model.ServiceError{
			Message:   string(v.GetStringBytes("description")),
			RequestID: rid,
			Code:      response.StatusCode,
		}
	}

	logger.Info().Int64("message_id", v.GetInt64("result", "message_id")).Msg("response from telegram")

	return nil
}
