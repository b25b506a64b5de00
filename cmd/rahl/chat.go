package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/router"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive console session",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var (
	askModality string
	askFile     string
	askParts    []string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [TEXT]",
	Short: "Process one input and print the result",
	Example: `  rahl ask "what can you see?"
  rahl ask --modality image --file photo.jpg --json
  rahl ask "what is this?" --part image=photo.jpg --part audio=clip.wav`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askModality, "modality", "m", "", "text, image, audio or multimodal (default text)")
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "read the payload for image or audio from this file")
	askCmd.Flags().StringArrayVarP(&askParts, "part", "p", nil, "multimodal part as text=TEXT, image=PATH or audio=PATH (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
}

// #region chat
func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ui := newConsoleUI(cmd.OutOrStdout(), cfg.Server.Locale, true)
	a.wire(ui)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Orchestrator.Init(ctx); err != nil {
		return err
	}
	return ui.loop(ctx, cmd.InOrStdin(), cfg.Inference.CallTimeout)
}

// #endregion chat

// #region ask
func runAsk(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) == 1 {
		text = args[0]
	}
	req, err := buildAskRequest(text, askModality, askFile, askParts)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.wire(newConsoleUI(cmd.OutOrStdout(), cfg.Server.Locale, false))
	ctx := cmd.Context()
	if err := a.Orchestrator.Init(ctx); err != nil {
		return err
	}

	res, err := a.Orchestrator.ProcessRequest(ctx, req)
	if err != nil {
		return err
	}
	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

// buildAskRequest turns the ask arguments into a request. Any --part makes
// the request multimodal; TEXT then becomes its first text part.
func buildAskRequest(text, mode, file string, parts []string) (router.Request, error) {
	if len(parts) > 0 || mode == "multimodal" {
		if len(parts) == 0 {
			return router.Request{}, fmt.Errorf("--modality multimodal needs at least one --part")
		}
		if mode != "" && mode != "multimodal" {
			return router.Request{}, fmt.Errorf("--part cannot be combined with --modality %s", mode)
		}
		if file != "" {
			return router.Request{}, fmt.Errorf("--file cannot be combined with --part")
		}
		req := router.Request{Modality: string(modality.Multimodal)}
		if text != "" {
			req.Parts = append(req.Parts, fusion.Part{Modality: modality.Text, Input: text})
		}
		for _, raw := range parts {
			part, err := parsePart(raw)
			if err != nil {
				return router.Request{}, err
			}
			req.Parts = append(req.Parts, part)
		}
		return req, nil
	}

	req := router.Request{Modality: mode, Input: text}
	if file != "" {
		if mode == "" {
			return router.Request{}, fmt.Errorf("--modality is required with --file")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return router.Request{}, fmt.Errorf("read %s: %w", file, err)
		}
		req.Data = data
	}
	if req.Input == "" && req.Data == nil {
		return router.Request{}, fmt.Errorf("nothing to process: pass TEXT, --file or --part")
	}
	return req, nil
}

func parsePart(raw string) (fusion.Part, error) {
	kind, value, ok := strings.Cut(raw, "=")
	if !ok || value == "" {
		return fusion.Part{}, fmt.Errorf("invalid --part %q: want KIND=VALUE", raw)
	}
	switch kind {
	case "text":
		return fusion.Part{Modality: modality.Text, Input: value}, nil
	case "image", "audio":
		data, err := os.ReadFile(value)
		if err != nil {
			return fusion.Part{}, fmt.Errorf("read %s: %w", value, err)
		}
		return fusion.Part{Modality: modality.Modality(kind), Data: data}, nil
	}
	return fusion.Part{}, fmt.Errorf("invalid --part %q: kind must be text, image or audio", raw)
}

// #endregion ask
