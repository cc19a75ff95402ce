// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"drug-shortage-assistant/internal/docgen"
	"drug-shortage-assistant/internal/domain"
	"drug-shortage-assistant/internal/domain/model"
	"drug-shortage-assistant/internal/domain/ports/adapter"
	"drug-shortage-assistant/internal/domain/ports/repository"
	"drug-shortage-assistant/internal/infra/logging"
	"drug-shortage-assistant/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

const historyWindow = 15

const editConfirmation = "I've updated the document as requested. The revised version is now saved to your session."

type ChatUseCase interface {
	// Send handles one pharmacist message: edit requests rewrite the
	// session document, everything else is a plain conversation turn.
	Send(ctx context.Context, sessionID string, assistant model.AssistantType, text string) (reply string, intent Intent, err error)
	History(ctx context.Context, sessionID string, assistant model.AssistantType) (*model.Conversation, error)
}

type chatUC struct {
	conv        repository.ConversationRepository
	docs        repository.DocumentRepository
	txm         repository.TransactionManager
	generators  map[model.AssistantType]adapter.TextGenerator
	chatTimeout time.Duration
	docTimeout  time.Duration
	log         *zerolog.Logger
}

func NewChatUseCase(
	conv repository.ConversationRepository,
	docs repository.DocumentRepository,
	txm repository.TransactionManager,
	generators map[model.AssistantType]adapter.TextGenerator,
	chatTimeout, docTimeout time.Duration,
	logger *zerolog.Logger,
) *chatUC {
	l := logger.With().Str("component", "ChatUC").Logger()
	return &chatUC{
		conv:        conv,
		docs:        docs,
		txm:         txm,
		generators:  generators,
		chatTimeout: chatTimeout,
		docTimeout:  docTimeout,
		log:         &l,
	}
}

func (c *chatUC) Send(ctx context.Context, sessionID string, assistant model.AssistantType, text string) (string, Intent, error) {
	defer logging.TraceDuration(c.log, "ChatUC.Send")()

	text = strings.TrimSpace(text)
	if sessionID == "" || text == "" || !assistant.Valid() {
		return "", "", domain.ErrInvalidArgument
	}
	ctx = logging.WithSessID(ctx, sessionID)
	gen, ok := c.generators[assistant]
	if !ok {
		return "", "", domain.ErrInvalidArgument
	}

	conv, err := c.conv.Load(ctx, sessionID, assistant)
	if err != nil {
		return "", "", err
	}

	intent := ClassifyIntent(text)

	// Persist the user turn before calling the backend, so a failed call
	// still leaves the transcript intact.
	userMsg := model.ChatMessage{SessionID: sessionID, Assistant: assistant, Role: "user", Content: text}
	if err := c.conv.AppendMessage(ctx, nil, &userMsg); err != nil {
		return "", "", err
	}

	var reply string
	var revised *model.Document
	if intent == IntentEditRequest {
		revised, err = c.reviseDocument(ctx, gen, sessionID, text)
		switch {
		case err == nil:
			reply = editConfirmation
		case errors.Is(err, domain.ErrNotFound):
			// Nothing to edit yet; answer conversationally instead.
			intent = IntentQuestion
			revised = nil
			reply, err = c.chat(ctx, gen, sessionID, conv, text)
		}
	} else {
		reply, err = c.chat(ctx, gen, sessionID, conv, text)
	}
	if err != nil {
		return "", intent, err
	}

	// The revision and its confirmation land together or not at all.
	aiMsg := model.ChatMessage{SessionID: sessionID, Assistant: assistant, Role: "assistant", Content: reply}
	err = c.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if revised != nil {
			if err := c.docs.Save(ctx, tx, revised); err != nil {
				return err
			}
		}
		return c.conv.AppendMessage(ctx, tx, &aiMsg)
	})
	if err != nil {
		return "", intent, err
	}
	if revised != nil {
		c.log.Info().Str("session_id", sessionID).Msg("document revised via chat")
	}
	return reply, intent, nil
}

func (c *chatUC) History(ctx context.Context, sessionID string, assistant model.AssistantType) (*model.Conversation, error) {
	if sessionID == "" || !assistant.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return c.conv.Load(ctx, sessionID, assistant)
}

// chat answers a question with recent history for context. The session
// document, when present, is folded into the system prompt so the assistant
// can ground alternative suggestions in it.
func (c *chatUC) chat(ctx context.Context, gen adapter.TextGenerator, sessionID string, conv *model.Conversation, text string) (string, error) {
	system := docgen.ChatSystemPrompt
	if doc, err := c.docs.FindBySession(ctx, sessionID); err == nil {
		system += "\n\nThe pharmacist's current shortage-response document:\n\n" + doc.Content
	}

	history := make([]adapter.Message, 0, historyWindow+1)
	history = append(history, adapter.Message{Role: "system", Content: system})
	for _, m := range conv.Recent(historyWindow) {
		history = append(history, adapter.Message{Role: m.Role, Content: m.Content})
	}

	if n, err := gen.CountTokens(ctx, history); err == nil {
		metrics.AddTokensIn(gen.Name(), n)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.chatTimeout)
	defer cancel()
	start := time.Now()
	reply, err := gen.Generate(callCtx, history, text)
	metrics.ObserveAICall(gen.Name(), "chat", int(time.Since(start).Milliseconds()), err == nil)
	return reply, err
}

// reviseDocument rewrites the current document under the instruction and
// returns the unsaved revision. Returns domain.ErrNotFound when the session
// has no document.
func (c *chatUC) reviseDocument(ctx context.Context, gen adapter.TextGenerator, sessionID, instruction string) (*model.Document, error) {
	doc, err := c.docs.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history := []adapter.Message{{Role: "system", Content: docgen.SystemPrompt}}
	prompt := docgen.BuildEditPrompt(doc.Content, instruction)

	callCtx, cancel := context.WithTimeout(ctx, c.docTimeout)
	defer cancel()
	start := time.Now()
	revised, err := gen.Generate(callCtx, history, prompt)
	metrics.ObserveAICall(gen.Name(), "document", int(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		return nil, err
	}
	if vErr := docgen.ValidateDocument(revised); vErr != nil {
		return nil, domain.ErrMalformedDocument
	}

	doc.Content = revised
	return doc, nil
}
