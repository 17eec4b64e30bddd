package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"noote/client/internal/api"
	"noote/client/internal/markdown"
)

const (
	excerptLength = 60
	timeLayout    = "2006-01-02 15:04"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeNotes(w io.Writer, notes []api.Note) error {
	if len(notes) == 0 {
		_, err := fmt.Fprintln(w, "No notes.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tOWNER\tVISIBILITY\tUPDATED\tEXCERPT")
	for _, n := range notes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.Title, orDash(n.OwnerUsername), visibility(n.IsPublic),
			formatTime(n.UpdatedAt), markdown.Excerpt(n.Content, excerptLength))
	}
	return tw.Flush()
}

func writeCollections(w io.Writer, collections []api.Collection) error {
	if len(collections) == 0 {
		_, err := fmt.Fprintln(w, "No collections.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tVISIBILITY\tNOTES\tDESCRIPTION")
	for _, c := range collections {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.Name, orDash(c.OwnerUsername), visibility(c.IsPublic), c.NoteCount, oneLine(c.Description))
	}
	return tw.Flush()
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatTime(t api.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
