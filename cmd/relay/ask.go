package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/context-relay/relay/harness"
)

const apology = "Sorry, I could not answer that right now. Please try again."

var errRequestFailed = errors.New("request failed")

// requestFlags are the per-message options shared by ask and chat.
type requestFlags struct {
	provider  string
	assistant string
	thread    string
	prompt    string
	web       bool
	files     []string
	asJSON    bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "Completion provider id (defaults to completion.default_provider).")
	cmd.Flags().StringVar(&f.assistant, "assistant", "", "Assistant name, recorded in logs and traces.")
	cmd.Flags().StringVar(&f.thread, "thread", "", "Conversation thread id; empty starts a new thread.")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Caller-supplied system prompt.")
	cmd.Flags().BoolVar(&f.web, "web", false, "Enrich with web search results when no file or URL applies.")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "Local file to excerpt into the context (repeatable).")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result payload as JSON.")
}

func (f *requestFlags) request(message string) harness.Request {
	return harness.Request{
		ProviderID:      f.provider,
		AssistantName:   f.assistant,
		UserMessage:     message,
		ThreadID:        f.thread,
		Prompt:          f.prompt,
		EnableWebSearch: f.web,
		FilePaths:       f.files,
	}
}

func newAskCmd(a *app) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assembler, err := a.assembler()
			if err != nil {
				return err
			}
			res := assembler.Assemble(cmd.Context(), flags.request(strings.Join(args, " ")))
			if err := printResult(cmd.OutOrStdout(), res, flags.asJSON); err != nil {
				return err
			}
			if !res.OK() {
				return errRequestFailed
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// printResult writes the reply, or an apology whose detail stays in the logs.
func printResult(w io.Writer, res harness.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Payload())
	}
	if !res.OK() {
		_, err := fmt.Fprintln(w, apology)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n\n[thread %s]\n", res.Reply.Message, res.Reply.ThreadID)
	return err
}
