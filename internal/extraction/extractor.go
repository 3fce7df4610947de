// Package extraction asks the language model for structured document
// metadata and turns its answer into a validated Result.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"traveldocs-backend/internal/llm"
	"traveldocs-backend/internal/shared/telemetry"
)

const maxCompletionTokens = 4096

// Extractor runs the extraction prompt against a Completer.
type Extractor struct {
	llm    llm.Completer
	prompt llm.Prompt
	now    func() time.Time
}

func New(completer llm.Completer) (*Extractor, error) {
	if completer == nil {
		return nil, errors.New("extraction: completer is required")
	}
	prompt, err := llm.LoadPrompt("extraction")
	if err != nil {
		return nil, err
	}
	return &Extractor{llm: completer, prompt: prompt, now: time.Now}, nil
}

// Extract sends the content once and, if the answer fails to decode or
// validate, once more with a repair instruction.
func (e *Extractor) Extract(ctx context.Context, req Request) (Result, error) {
	if err := checkRequest(req); err != nil {
		return Result{}, &Error{Kind: KindInput, Err: err}
	}
	now := req.Now
	if now.IsZero() {
		now = e.now()
	}

	messages := e.buildMessages(req, now)
	content, err := e.complete(ctx, messages)
	if err != nil {
		return Result{}, &Error{Kind: KindTransport, Err: err}
	}

	result, kind, err := parse(content)
	if err != nil {
		telemetry.Warn("extraction.repair", map[string]any{
			"file_name": req.FileName,
			"kind":      string(kind),
			"error":     err,
		})
		repair := strings.NewReplacer("{{problem}}", err.Error()).Replace(e.prompt.Repair)
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: content},
			llm.Message{Role: llm.RoleSystem, Content: repair},
		)
		content, err = e.complete(ctx, messages)
		if err != nil {
			return Result{}, &Error{Kind: KindTransport, Err: err}
		}
		result, kind, err = parse(content)
		if err != nil {
			return Result{}, &Error{Kind: kind, Err: err}
		}
	}
	return Finalize(result, req.FileName), nil
}

func (e *Extractor) complete(ctx context.Context, messages []llm.Message) (string, error) {
	resp, err := e.llm.Complete(ctx, llm.Request{
		Operation: "extract",
		Messages:  messages,
		Format: llm.ResponseFormat{
			Type:   llm.FormatJSONSchema,
			Name:   "travel_document",
			Schema: json.RawMessage(e.prompt.Schema),
			Strict: true,
		},
		MaxTokens: maxCompletionTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (e *Extractor) buildMessages(req Request, now time.Time) []llm.Message {
	system := e.prompt.Render(map[string]string{
		"today":    now.Format(DateLayout),
		"year":     strconv.Itoa(now.Year()),
		"language": LanguageName(req.Language),
		"fileName": req.FileName,
	})
	user := llm.Message{Role: llm.RoleUser}
	if req.IsText {
		user.Content = "Document text:\n\n" + req.Text
	} else {
		user.Content = "Extract the metadata from this document image."
		user.Parts = []llm.Part{llm.ImagePart(req.ImageMimeType, req.ImageBase64)}
	}
	return []llm.Message{{Role: llm.RoleSystem, Content: system}, user}
}

func parse(content string) (Result, Kind, error) {
	result, err := decodeResult(content)
	if err != nil {
		return Result{}, KindResponse, err
	}
	result.canonicalize()
	if err := result.Validate(); err != nil {
		return Result{}, KindSchema, err
	}
	return result, "", nil
}

func checkRequest(req Request) error {
	if req.IsText {
		if strings.TrimSpace(req.Text) == "" {
			return errors.New("text request without text")
		}
		return nil
	}
	if req.ImageBase64 == "" {
		return errors.New("image request without image data")
	}
	if !strings.HasPrefix(req.ImageMimeType, "image/") {
		return fmt.Errorf("image request with media type %q", req.ImageMimeType)
	}
	return nil
}
