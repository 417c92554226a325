package main

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	"github.com/ZanzyTHEbar/context-relay/relay/harness"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		flags requestFlags
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read messages from stdin, one per line, on a single thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			assembler, err := a.assembler()
			if err != nil {
				return err
			}

			var mu sync.Mutex
			if watch {
				_, err := config.Watch(a.configPath, func(cfg *config.Config, err error) {
					if err != nil {
						a.logger.Warn().Err(err).Msg("ignoring config change")
						return
					}
					next, err := harness.NewFactory(cfg, a.keys, a.db, a.logger).CreateAssembler()
					if err != nil {
						a.logger.Warn().Err(err).Msg("ignoring config change")
						return
					}
					mu.Lock()
					assembler = next
					mu.Unlock()
					a.logger.Info().Msg("config reloaded")
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				mu.Lock()
				current := assembler
				mu.Unlock()

				res := current.Assemble(cmd.Context(), flags.request(line))
				if err := printResult(out, res, flags.asJSON); err != nil {
					return err
				}
				if res.OK() && flags.thread == "" {
					flags.thread = res.Reply.ThreadID
				}
				// File excerpts apply to the opening message only.
				flags.files = nil
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the --config file when it changes.")
	return cmd
}
