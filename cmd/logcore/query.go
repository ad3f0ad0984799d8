package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"logcore/internal/varenc"
	"logcore/internal/wildcard"
)

func newQueryCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <wildcard-query>",
		Short: "Compile a wildcard query into its logtype sub-queries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := wildcard.NewSubQueryGenerator(varenc.DefaultEncoder{})
			subqueries, err := gen.GenerateSubqueries(args[0])
			if err != nil {
				return fmt.Errorf("compile query: %w", err)
			}

			logger.Debug("compiled query", "query", args[0], "subqueries", len(subqueries))

			for _, sq := range subqueries {
				fmt.Printf("logtype=%q vars=%d\n", sq.Logtype, len(sq.Vars))
				for _, v := range sq.Vars {
					fmt.Printf("  [%d,%d) %q\n", v.Begin, v.End, v.Text)
				}
			}
			return nil
		},
	}
	return cmd
}
