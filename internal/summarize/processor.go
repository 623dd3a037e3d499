// Package summarize implements the per-PDF Gemini call: upload the document,
// generate a summary from the configured prompt, and persist the text as the
// item's Markdown artifact.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"papersum/internal/dispatch"
	"papersum/internal/logging"
	"papersum/internal/services"
	"papersum/internal/services/gemini"
)

// Generator is the subset of the Gemini client the processor needs.
type Generator interface {
	UploadFile(ctx context.Context, path string) (gemini.File, error)
	Generate(ctx context.Context, file gemini.File, prompt string) (string, error)
}

// Writer persists the generated text for an item and returns its location.
type Writer interface {
	Write(id, text string) (string, error)
}

// Processor is a dispatch.Processor that turns one PDF into one summary file.
type Processor struct {
	generator Generator
	writer    Writer
	prompt    string
	logger    *slog.Logger
}

var _ dispatch.Processor = (*Processor)(nil)

// NewProcessor wires a processor. The prompt must be non-empty.
func NewProcessor(generator Generator, writer Writer, prompt string, logger *slog.Logger) (*Processor, error) {
	if generator == nil || writer == nil {
		return nil, errors.New("summarize: generator and writer required")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, services.Configuration("summarize: prompt is empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		generator: generator,
		writer:    writer,
		prompt:    prompt,
		logger:    logging.NewComponentLogger(logger, "summarize"),
	}, nil
}

// Process uploads item.Locator, asks the model for a summary, and writes it
// under item.ID. An empty model response still produces an (empty) file.
func (p *Processor) Process(ctx context.Context, item dispatch.WorkItem) (string, error) {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, p.logger)

	started := time.Now()
	file, err := p.generator.UploadFile(services.WithStage(ctx, "upload"), item.Locator)
	if err != nil {
		return "", services.Classify("summarize upload", err)
	}
	logger.Debug("pdf uploaded",
		logging.String("file", file.Name),
		logging.Duration("elapsed", time.Since(started)),
	)

	text, err := p.generator.Generate(services.WithStage(ctx, "generate"), file, p.prompt)
	if err != nil {
		return "", services.Classify("summarize generate", err)
	}
	if strings.TrimSpace(text) == "" {
		logging.WarnWithContext(logger, "model returned no text", "empty_summary",
			logging.Alert("empty_summary"),
			logging.String(logging.FieldErrorHint, "inspect the PDF; an empty summary file was written"),
		)
	}

	path, err := p.writer.Write(item.ID, text)
	if err != nil {
		return "", services.NewError(services.KindIO, "summarize write", "persist summary", err)
	}
	return path, nil
}

// LoadPrompt reads the prompt file. A missing or blank file is a
// configuration error that aborts the run before any item is scheduled.
func LoadPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Configuration("prompt file %s not found", path)
		}
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", services.Configuration("prompt file %s is empty", path)
	}
	return prompt, nil
}
