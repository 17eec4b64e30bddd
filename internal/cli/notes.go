package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"noote/client/internal/api"
	"noote/client/internal/app"
	"noote/client/internal/markdown"
)

func (e *env) notesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Browse and manage notes",
	}
	cmd.AddCommand(
		e.notesListCommand(),
		e.notesMineCommand(),
		e.notesShowCommand(),
		e.notesCreateCommand(),
		e.notesEditCommand(),
		e.notesDeleteCommand(),
		e.notesSearchCommand(),
	)
	return cmd
}

func (e *env) notesListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			skip, _ := cmd.Flags().GetInt("skip")
			limit, _ := cmd.Flags().GetInt("limit")
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			notes, err := e.app.Notes().ListPublic(ctx, api.Page{Skip: skip, Limit: limit})
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			return writeNotes(cmd.OutOrStdout(), notes)
		},
	}
	addPageFlags(cmd)
	return cmd
}

func (e *env) notesMineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, "/my-notes"); err != nil {
				return err
			}
			notes, err := e.app.Notes().ListMine(ctx)
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			return writeNotes(cmd.OutOrStdout(), notes)
		},
	}
}

func (e *env) notesShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			asHTML, _ := cmd.Flags().GetBool("html")
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if _, err := e.app.Navigate(ctx, fmt.Sprintf("/notes/%d", id)); err != nil {
				return fail(app.ActionLoad, err)
			}
			note, err := e.app.Notes().Get(ctx, id)
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			out := cmd.OutOrStdout()
			if asHTML {
				body := note.Content
				if note.FileType == "md" {
					if body, err = markdown.Render(note.Content); err != nil {
						return fmt.Errorf("render note: %w", err)
					}
				}
				_, err = fmt.Fprint(out, body)
				return err
			}
			fmt.Fprintf(out, "# %s\n", note.Title)
			fmt.Fprintf(out, "id %d, %s, %s, updated %s\n\n", note.ID, note.FileType, visibility(note.IsPublic), formatTime(note.UpdatedAt))
			_, err = fmt.Fprintln(out, note.Content)
			return err
		},
	}
	cmd.Flags().Bool("html", false, "render markdown to HTML")
	return cmd
}

func (e *env) notesCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note from text or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			fileType, _ := cmd.Flags().GetString("type")
			private, _ := cmd.Flags().GetBool("private")
			content, path, err := noteContent(cmd)
			if err != nil {
				return err
			}
			if path != "" {
				if title == "" {
					title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				}
				if !cmd.Flags().Changed("type") && strings.EqualFold(filepath.Ext(path), ".txt") {
					fileType = "txt"
				}
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, "/create-note"); err != nil {
				return err
			}
			note, err := e.app.Notes().Create(ctx, api.NoteCreate{
				Title:    title,
				Content:  content,
				FileType: fileType,
				IsPublic: !private,
			})
			if err != nil {
				return fail(app.ActionSave, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created note %d\n", note.ID)
			return nil
		},
	}
	cmd.Flags().StringP("title", "t", "", "note title, defaults to the file name")
	cmd.Flags().String("type", "md", "md or txt")
	cmd.Flags().Bool("private", false, "hide the note from other users")
	addContentFlags(cmd)
	return cmd
}

func (e *env) notesEditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var update api.NoteUpdate
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				update.Title = &title
			}
			if cmd.Flags().Changed("content") || cmd.Flags().Changed("file") {
				content, _, err := noteContent(cmd)
				if err != nil {
					return err
				}
				update.Content = &content
			}
			if cmd.Flags().Changed("public") {
				public, _ := cmd.Flags().GetBool("public")
				update.IsPublic = &public
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, "/my-notes"); err != nil {
				return err
			}
			note, err := e.app.Notes().Update(ctx, id, update)
			if err != nil {
				return fail(app.ActionSave, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated note %d\n", note.ID)
			return nil
		},
	}
	cmd.Flags().StringP("title", "t", "", "new title")
	cmd.Flags().Bool("public", true, "set visibility")
	addContentFlags(cmd)
	return cmd
}

func (e *env) notesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.requireView(ctx, "/my-notes"); err != nil {
				return err
			}
			if err := e.app.Notes().Delete(ctx, id); err != nil {
				return fail(app.ActionDelete, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %d\n", id)
			return nil
		},
	}
}

func (e *env) notesSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search notes by title or content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if sc := api.SearchScope(scope); sc == api.ScopeMine || sc == api.ScopeAll {
				if err := e.requireView(ctx, "/my-notes"); err != nil {
					return err
				}
			}
			notes, err := e.app.Notes().Search(ctx, strings.Join(args, " "), api.SearchScope(scope))
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			return writeNotes(cmd.OutOrStdout(), notes)
		},
	}
	cmd.Flags().String("scope", string(api.ScopePublic), "public, my or all")
	return cmd
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("skip", api.DefaultPage.Skip, "number of items to skip")
	cmd.Flags().Int("limit", api.DefaultPage.Limit, "maximum number of items")
}

func addContentFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("content", "c", "", "note text")
	cmd.Flags().StringP("file", "f", "", "read note text from a file, - for stdin")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
}

// noteContent returns the text given by --content or --file and the file
// path it came from.
func noteContent(cmd *cobra.Command) (string, string, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		content, _ := cmd.Flags().GetString("content")
		return content, "", nil
	}
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read note file: %w", err)
	}
	return string(raw), path, nil
}
