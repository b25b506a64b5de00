package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rahl-ai/rahl-core/internal/engine"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// #region console-ui
// consoleUI is the terminal surface used by chat and ask.
type consoleUI struct {
	out         io.Writer
	locale      string
	interactive bool

	mu      sync.RWMutex
	handler router.Handler
	turns   int
}

func newConsoleUI(out io.Writer, locale string, interactive bool) *consoleUI {
	return &consoleUI{out: out, locale: locale, interactive: interactive}
}

func (c *consoleUI) Render(context.Context) error {
	if c.interactive {
		fmt.Fprintln(c.out, "RAHL ready.")
		fmt.Fprintln(c.out, "Type a message, /image PATH, /audio PATH, or 'quit' to exit.")
	}
	return nil
}

func (c *consoleUI) Context() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]any{
		"ui":          "console",
		"locale":      c.locale,
		"interactive": c.interactive,
		"turn":        c.turns,
	}
}

func (c *consoleUI) Attach(h router.Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// #endregion console-ui

// #region loop
// loop reads lines from in until EOF, quit or ctx ends. Each line is one
// request bounded by timeout.
func (c *consoleUI) loop(ctx context.Context, in io.Reader, timeout time.Duration) error {
	c.mu.RLock()
	h := c.handler
	c.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("console: no handler attached")
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		req, err := parseLine(line)
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			continue
		}

		c.mu.Lock()
		c.turns++
		c.mu.Unlock()

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		res, err := h.ProcessRequest(callCtx, req)
		cancel()
		if err != nil {
			fmt.Fprintf(c.out, "error [%s]: %v\n", engine.Classify(err), err)
			continue
		}
		printResult(c.out, res)
		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

// parseLine turns a console line into a request. /image and /audio read the
// named file as the payload.
func parseLine(line string) (router.Request, error) {
	for _, m := range []string{"image", "audio"} {
		prefix := "/" + m
		if line != prefix && !strings.HasPrefix(line, prefix+" ") {
			continue
		}
		path := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		if path == "" {
			return router.Request{}, fmt.Errorf("usage: %s PATH", prefix)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return router.Request{}, fmt.Errorf("read %s: %w", path, err)
		}
		return router.Request{Modality: m, Data: data}, nil
	}
	return router.Request{Input: line}, nil
}

// #endregion loop

// #region output
func printResult(w io.Writer, res fusion.Result) {
	fmt.Fprintf(w, "\n[%s] modality=%s", res.ID, res.Modality)
	if res.Emotion != nil {
		fmt.Fprintf(w, " emotion=%s(%.2f)", res.Emotion.Label, res.Emotion.Score)
	}
	if res.Predictions != nil {
		if top, ok := res.Predictions.Top(); ok {
			fmt.Fprintf(w, " intent=%s(%.2f)", top.Label, top.Score)
		}
	}
	fmt.Fprintln(w)
	if res.Transcript != nil {
		fmt.Fprintf(w, "  transcript: %s\n", res.Transcript.Text)
	}
	for _, o := range res.Objects {
		fmt.Fprintf(w, "  object: %-12s %.2f\n", o.Label, o.Score)
	}
	if res.Features != nil {
		fmt.Fprintf(w, "  format: %s  bytes: %d  entropy: %.3f\n", res.Features.Format, res.Features.Bytes, res.Features.Entropy)
	}
	fmt.Fprintln(w)
}

// #endregion output
