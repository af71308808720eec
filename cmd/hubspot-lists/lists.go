package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/hubspot-lists-client/pkg/lists"
	"github.com/Sternrassler/hubspot-lists-client/pkg/pagination"
)

func newGetCommand(opts *rootOptions) *cobra.Command {
	var (
		listID   int64
		count    int
		offset   int64
		all      bool
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the contacts of a list as JSON",
		Long:  "Print one page of list membership, or with --all every contact of the list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, _, cleanup, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if all {
				w := pagination.NewWalker(c, pagination.Config{PageSize: count, MaxPages: maxPages})
				contacts, err := w.All(ctx, listID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), contacts)
			}

			reqOpts := &lists.RequestOptions{PageSize: count}
			if cmd.Flags().Changed("offset") {
				reqOpts.Offset = lists.Offset(offset)
			}

			page, err := c.GetContacts(ctx, listID, reqOpts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}

	cmd.Flags().Int64Var(&listID, "list-id", 0, "List id (required)")
	cmd.Flags().IntVar(&count, "count", lists.DefaultPageSize, "Contacts per page")
	cmd.Flags().Int64Var(&offset, "offset", 0, "vidOffset cursor of the page to fetch")
	cmd.Flags().BoolVar(&all, "all", false, "Follow the cursor and print every contact")
	cmd.Flags().IntVar(&maxPages, "max-pages", pagination.DefaultConfig().MaxPages, "Page limit for --all (0 for none)")
	_ = cmd.MarkFlagRequired("list-id")
	cmd.MarkFlagsMutuallyExclusive("all", "offset")

	return cmd
}

// batchOutput is printed by add and remove.
type batchOutput struct {
	ListID int64  `json:"listId"`
	Action string `json:"action"`
	OK     bool   `json:"ok"`
}

func newBatchCommand(opts *rootOptions, action lists.Action) *cobra.Command {
	var (
		listID int64
		vids   []int64
		emails []string
	)

	use, short := "add", "Add contacts to a list"
	if action == lists.ActionRemoveBatch {
		use, short = "remove", "Remove contacts from a list"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(vids) == 0 && len(emails) == 0 {
				return fmt.Errorf("at least one --vid or --email is required")
			}

			ctx := cmd.Context()
			c, _, cleanup, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			payload := &lists.BatchPayload{Vids: vids, Emails: emails}

			var ok bool
			if action == lists.ActionRemoveBatch {
				ok, err = c.RemoveBatch(ctx, payload, listID)
			} else {
				ok, err = c.AddBatch(ctx, payload, listID)
			}
			if err != nil {
				return err
			}

			if err := writeJSON(cmd.OutOrStdout(), batchOutput{ListID: listID, Action: use, OK: ok}); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("hubspot rejected %s for list %d", use, listID)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&listID, "list-id", 0, "List id (required)")
	cmd.Flags().Int64SliceVar(&vids, "vid", nil, "Contact id (repeatable)")
	cmd.Flags().StringSliceVar(&emails, "email", nil, "Contact email (repeatable)")
	_ = cmd.MarkFlagRequired("list-id")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
