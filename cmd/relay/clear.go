package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(a *app) *cobra.Command {
	var (
		thread string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (thread == "") == !all {
				return errors.New("pass exactly one of --thread or --all")
			}
			assembler, err := a.assembler()
			if err != nil {
				return err
			}
			if all {
				if err := assembler.ClearAll(cmd.Context()); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "cleared all threads")
				return err
			}
			if err := assembler.ClearThread(cmd.Context(), thread); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared thread %s\n", thread)
			return err
		},
	}
	cmd.Flags().StringVar(&thread, "thread", "", "Thread id to clear.")
	cmd.Flags().BoolVar(&all, "all", false, "Clear every thread.")
	return cmd
}
