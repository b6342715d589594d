package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docubot-ai/docubot/internal/llm"
	"github.com/docubot-ai/docubot/internal/observability"
)

const (
	exitToken  = "exit"
	debugToken = "debug"
)

// Completer answers a prepared message sequence.
// Satisfied by llm.Client.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (*llm.Answer, error)
	Model() string
}

// QALoop drives the interactive question-answering session over an
// assembled document digest. Input and output are injected so tests
// can script a session.
type QALoop struct {
	client  Completer
	prompts *llm.PromptBuilder
	digest  *Digest
	in      io.Reader
	out     io.Writer
	logger  *observability.Logger
}

// NewQALoop creates a QALoop bound to the given digest.
func NewQALoop(client Completer, prompts *llm.PromptBuilder, digest *Digest, in io.Reader, out io.Writer, logger *observability.Logger) *QALoop {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &QALoop{
		client:  client,
		prompts: prompts,
		digest:  digest,
		in:      in,
		out:     out,
		logger:  logger.WithComponent("qa"),
	}
}

// Run reads questions until the exit token or end of input. An "exit"
// line (surrounding whitespace ignored, any case) terminates without a
// model call. A leading "debug" token prints the exact prompt before
// asking. A failed question is reported and the loop continues.
func (l *QALoop) Run(ctx context.Context) error {
	fmt.Fprintf(l.out, "Document loaded (%d text blocks, %d tables). Ask a question, or type 'exit' to quit.\n", l.digest.TextBlockCount, l.digest.TableCount)
	if l.digest.Truncated {
		fmt.Fprintln(l.out, "Note: the document was truncated to fit the model context.")
	}

	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(l.out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, exitToken) {
			fmt.Fprintln(l.out, "Goodbye.")
			return nil
		}

		debug := false
		if rest, ok := stripDebugToken(question); ok {
			debug = true
			question = rest
			if question == "" {
				continue
			}
		}

		prompt := l.prompts.BuildDocumentQA(l.digest.CombinedText, question)
		if debug {
			fmt.Fprintf(l.out, "\n--- prompt ---\n%s\n--- end prompt ---\n", prompt)
		}

		answer, err := l.client.Complete(ctx, l.prompts.Messages(prompt))
		if err != nil {
			l.logger.Warn().Err(err).Msg("Question failed")
			fmt.Fprintf(l.out, "Error: %v\n", err)
			continue
		}

		fmt.Fprintf(l.out, "\n%s\n", answer.Text)
	}
}

// stripDebugToken removes a leading debug token from a question,
// reporting whether one was present.
func stripDebugToken(question string) (string, bool) {
	fields := strings.Fields(question)
	if len(fields) == 0 || !strings.EqualFold(fields[0], debugToken) {
		return question, false
	}
	return strings.TrimSpace(strings.TrimPrefix(question, fields[0])), true
}
