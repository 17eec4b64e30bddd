package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"noote/client/internal/api"
	"noote/client/internal/app"
)

const myCollectionsPath = "/my-collections"

func (e *env) collectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Browse and manage collections",
	}
	cmd.AddCommand(
		e.collectionsListCommand(),
		e.collectionsMineCommand(),
		e.collectionsShowCommand(),
		e.collectionsCreateCommand(),
		e.collectionsDeleteCommand(),
		e.collectionsNotesCommand(),
		e.collectionsAddCommand(),
		e.collectionsRemoveCommand(),
		e.collectionsReorderCommand(),
		e.collectionsIntegrateCommand(),
	)
	return cmd
}

func (e *env) collectionsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			skip, _ := cmd.Flags().GetInt("skip")
			limit, _ := cmd.Flags().GetInt("limit")
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			list, err := e.app.Collections().ListPublic(ctx, api.Page{Skip: skip, Limit: limit})
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			return writeCollections(cmd.OutOrStdout(), list)
		},
	}
	addPageFlags(cmd)
	return cmd
}

func (e *env) collectionsMineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, myCollectionsPath); err != nil {
				return err
			}
			list, err := e.app.Collections().ListMine(ctx)
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			return writeCollections(cmd.OutOrStdout(), list)
		},
	}
}

func (e *env) collectionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a collection and its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if _, err := e.app.Navigate(ctx, fmt.Sprintf("/collections/%d", id)); err != nil {
				return fail(app.ActionLoad, err)
			}
			c, err := e.app.Collections().Get(ctx, id)
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			notes, err := e.app.Collections().Notes(ctx, id)
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, %d notes, owner %s)\n", c.Name, visibility(c.IsPublic), c.NoteCount, orDash(c.OwnerUsername))
			if c.Description != "" {
				fmt.Fprintln(out, c.Description)
			}
			fmt.Fprintln(out)
			return writeNotes(out, notes)
		},
	}
}

func (e *env) collectionsCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			private, _ := cmd.Flags().GetBool("private")
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, myCollectionsPath); err != nil {
				return err
			}
			c, err := e.app.Collections().Create(ctx, api.CollectionCreate{
				Name:        args[0],
				Description: description,
				IsPublic:    !private,
			})
			if err != nil {
				return fail(app.ActionSave, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created collection %d\n", c.ID)
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "collection description")
	cmd.Flags().Bool("private", false, "hide the collection from other users")
	return cmd
}

func (e *env) collectionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a collection you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, myCollectionsPath); err != nil {
				return err
			}
			if err := e.app.Collections().Delete(ctx, id); err != nil {
				return fail(app.ActionDelete, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %d\n", id)
			return nil
		},
	}
}

func (e *env) collectionsNotesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <id>",
		Short: "List the notes of a collection in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			notes, err := e.app.Collections().Notes(ctx, id)
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			return writeNotes(cmd.OutOrStdout(), notes)
		},
	}
}

func (e *env) collectionsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection-id> <note-id>",
		Short: "Append a note to a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, myCollectionsPath); err != nil {
				return err
			}
			if err := e.app.Collections().AddNote(ctx, ids[0], ids[1]); err != nil {
				return fail(app.ActionSave, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added note %d to collection %d\n", ids[1], ids[0])
			return nil
		},
	}
}

func (e *env) collectionsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <collection-id> <note-id>",
		Short: "Remove a note from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, myCollectionsPath); err != nil {
				return err
			}
			if err := e.app.Collections().RemoveNote(ctx, ids[0], ids[1]); err != nil {
				return fail(app.ActionDelete, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed note %d from collection %d\n", ids[1], ids[0])
			return nil
		},
	}
}

func (e *env) collectionsReorderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <collection-id> <note-id>...",
		Short: "Set the order of every note in a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, myCollectionsPath); err != nil {
				return err
			}
			if err := e.app.Collections().Reorder(ctx, ids[0], ids[1:]); err != nil {
				return fail(app.ActionSave, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reordered collection %d\n", ids[0])
			return nil
		},
	}
}

func (e *env) collectionsIntegrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integrate <id>",
		Short: "Merge the notes of a collection into one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			apiKey, _ := cmd.Flags().GetString("api-key")
			prompt, _ := cmd.Flags().GetString("prompt")
			if apiKey == "" {
				if apiKey, err = e.readPassword("API key: "); err != nil {
					return err
				}
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, myCollectionsPath); err != nil {
				return err
			}
			res, err := e.app.Collections().Integrate(ctx, id, api.IntegrationRequest{APIKey: apiKey, CustomPrompt: prompt})
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.IntegratedContent)
			return err
		},
	}
	cmd.Flags().String("api-key", "", "key for the integration service, prompted when empty")
	cmd.Flags().String("prompt", "", "extra instructions for the integration")
	return cmd
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
