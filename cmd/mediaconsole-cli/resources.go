package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/target/media-console/internal/domain/model"
)

func collectionUsage() string {
	return "one of: " + strings.Join(model.CollectionNames(), ", ")
}

func newListCmd(a *app) *cobra.Command {
	var (
		skip, limit, page int
		filters           []string
	)
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List items of a collection",
		Long:  "List items of a collection (" + collectionUsage() + ").",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			q := model.ListQuery{Skip: skip, Limit: limit}
			if page > 0 {
				q.Skip, q.Limit = model.FromPage(page, limit)
			}
			if q.Filters, err = parseFilters(filters); err != nil {
				return err
			}

			res, err := a.resources.List(cmd.Context(), a.scope(sess), args[0], q)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, res)
			}
			return renderList(a.out, res)
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "items to skip")
	cmd.Flags().IntVar(&limit, "limit", model.DefaultLimit, "page size")
	cmd.Flags().IntVar(&page, "page", 0, "1-based page number (overrides --skip)")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "key=value filter passed to the API (repeatable)")
	return cmd
}

func parseFilters(in []string) (url.Values, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := url.Values{}
	for _, f := range in {
		k, v, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", f)
		}
		out.Add(strings.TrimSpace(k), v)
	}
	return out, nil
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			out, err := a.resources.Get(cmd.Context(), a.scope(sess), args[0], args[1])
			if err != nil {
				return err
			}
			return printRawJSON(a.out, out)
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "create <collection>",
		Short: "Create an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			body, err := readBody(cmd, data)
			if err != nil {
				return err
			}
			out, err := a.resources.Create(cmd.Context(), a.scope(sess), args[0], body)
			if err != nil {
				return err
			}
			return printRawJSON(a.out, out)
		},
	}
	bindDataFlag(cmd, &data)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "update <collection> <id>",
		Short: "Patch an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			body, err := readBody(cmd, data)
			if err != nil {
				return err
			}
			out, err := a.resources.Update(cmd.Context(), a.scope(sess), args[0], args[1], body)
			if err != nil {
				return err
			}
			return printRawJSON(a.out, out)
		},
	}
	bindDataFlag(cmd, &data)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.resources.Delete(cmd.Context(), a.scope(sess), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s/%s.\n", args[0], args[1])
			return nil
		},
	}
}
