package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/store"
	"github.com/JonMunkholm/bizdash/internal/table"
)

func (c *cli) entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entities bizctl can manage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tKEY\tNAME\tACTIONS")
			for _, e := range c.services.Entities() {
				info := e.Info()
				actions := "-"
				if names := e.ActionNames(); len(names) > 0 {
					actions = fmt.Sprint(names)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Group, info.Key, info.Plural, actions)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var (
		search    string
		page      int
		perPage   int
		tablePage int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list <entity> [filter=value...]",
		Short: "List records with optional search and filters",
		Long: `List fetches one server page of records and prints one table page
of it. Filters are the entity's filter fields as key=value pairs.

Example:
  bizctl list invoices status=overdue
  bizctl list employees --search ada --table-page 2
  bizctl list journal-entries account_id=<id> --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.entity(args[0])
			if err != nil {
				return err
			}
			filters, err := parsePairs(args[1:])
			if err != nil {
				return err
			}
			if search != "" {
				filters[store.FilterSearch] = search
			}
			if page > 0 {
				filters[store.FilterPage] = strconv.Itoa(page)
			}
			if perPage > 0 {
				filters[store.FilterPerPage] = strconv.Itoa(perPage)
			}

			listing, err := e.List(cmd.Context(), app.ListOptions{Filters: filters, TablePage: tablePage})
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, map[string]any{
					"data":       listing.Records,
					"pagination": listing.Pagination,
				})
			}
			if err := table.WriteText(out, listing.Table); err != nil {
				return err
			}
			p := listing.Pagination
			if p.LastPage > 1 {
				fmt.Fprintf(out, "Server page %d of %d (%d records)\n", p.CurrentPage, p.LastPage, p.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "search text")
	cmd.Flags().IntVar(&page, "page", 0, "server page")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "records per server page")
	cmd.Flags().IntVar(&c.items, "items", 0, "rows per table page (default: $TABLE_ITEMS_PER_PAGE)")
	cmd.Flags().IntVar(&tablePage, "table-page", 1, "table page within the fetched records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the fetched records as JSON")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.entity(args[0])
			if err != nil {
				return err
			}
			rec, err := e.Get(cmd.Context(), args[1])
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func (c *cli) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <entity> field=value...",
		Short: "Create a record from form fields",
		Long: `Create validates the fields locally, then posts them. Field names are
the form's camelCase names; unspecified fields keep their defaults.

Example:
  bizctl create departments name=Research code=RND
  bizctl create invoices invoiceNumber=INV-9 customerName=Acme issueDate=2024-06-01 dueDate=2024-07-01 total=100`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.entity(args[0])
			if err != nil {
				return err
			}
			values, err := parsePairs(args[1:])
			if err != nil {
				return err
			}
			if err := checkFields(e, values); err != nil {
				return err
			}

			form := e.NewValues()
			for k, v := range values {
				form[k] = v
			}
			res, err := e.Save(cmd.Context(), "", form)
			if err != nil {
				return saveError(res, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %s)\n", res.Message, res.ID)
			return nil
		},
	}
}

func (c *cli) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <entity> <id> field=value...",
		Short: "Change fields of a record",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.entity(args[0])
			if err != nil {
				return err
			}
			values, err := parsePairs(args[2:])
			if err != nil {
				return err
			}
			if err := checkFields(e, values); err != nil {
				return err
			}

			form, err := e.EditValues(cmd.Context(), args[1])
			if err != nil {
				return describe(err)
			}
			for k, v := range values {
				form[k] = v
			}
			res, err := e.Save(cmd.Context(), args[1], form)
			if err != nil {
				return saveError(res, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.entity(args[0])
			if err != nil {
				return err
			}
			msg, err := e.Delete(cmd.Context(), args[1])
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func (c *cli) actionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "action <entity> <id> <action> [key=value...]",
		Short: "Run a side action such as approve, post or send",
		Example: `  bizctl action leave-requests <id> approve
  bizctl action invoices <id> record-payment amount=250`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.entity(args[0])
			if err != nil {
				return err
			}
			body, err := parsePairs(args[3:])
			if err != nil {
				return err
			}
			msg, err := e.Action(cmd.Context(), args[1], args[2], body)
			if err != nil {
				if errors.Is(err, app.ErrUnknownAction) {
					return fmt.Errorf("unknown action %q for %s (available: %v)", args[2], args[0], e.ActionNames())
				}
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
