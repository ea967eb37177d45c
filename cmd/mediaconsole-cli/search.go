package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/target/media-console/internal/domain/model"
)

func newQuickSearchCmd(a *app) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "quick-search",
		Short: "Run a quick search and wait for its result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			body, err := readBody(cmd, query)
			if err != nil {
				return err
			}

			progress := func(st model.TaskStatus) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %3.0f%%\n", st.TaskID, colorStatus(string(st.Status)), st.Progress*100)
			}
			status, err := a.quickSearch.Run(cmd.Context(), sess.Token(), body, progress)
			if err != nil {
				return err
			}
			if a.jsonOut || len(status.Result) == 0 {
				return printJSON(a.out, status)
			}
			return printRawJSON(a.out, status.Result)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search request JSON, @file, or - for stdin")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newOverviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show the public analytics overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sections, err := a.overview.Overview(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, sections)
			}
			names := make([]string, 0, len(sections))
			for name := range sections {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(a.out, "== %s ==\n", name)
				if err := printRawJSON(a.out, sections[name]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
