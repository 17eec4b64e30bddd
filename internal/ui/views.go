package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"noote/client/internal/api"
	"noote/client/internal/app"
	"noote/client/internal/markdown"
	"noote/client/internal/router"
)

const excerptLength = 120

func (m *Manager) viewFor(loc router.Location) fyne.CanvasObject {
	switch loc.Route.Name {
	case "home":
		return m.homeView()
	case "login":
		return m.loginView()
	case "register":
		return m.registerView()
	case "notes":
		return m.publicNotesView()
	case "note-detail":
		return m.noteDetailView(loc.Params["id"])
	case "my-notes":
		return m.myNotesView()
	case "create-note":
		return m.createNoteView()
	case "public-collections":
		return m.collectionsView(false)
	case "my-collections":
		return m.collectionsView(true)
	case "collection-detail":
		return m.collectionDetailView(loc.Params["id"])
	default:
		return widget.NewLabel("Page not found")
	}
}

func (m *Manager) homeView() fyne.CanvasObject {
	title := widget.NewLabelWithStyle("Noote", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	intro := widget.NewRichTextFromMarkdown("Write notes in Markdown, share the public ones and group them into collections.")
	intro.Wrapping = fyne.TextWrapWord
	greeting := widget.NewLabel("Browse public notes or log in to manage your own.")
	if user, ok := m.app.Session().User(); ok {
		greeting.SetText(fmt.Sprintf("Welcome back, %s.", user.Username))
	}
	return container.NewVBox(
		title,
		intro,
		greeting,
		container.NewHBox(
			widget.NewButton("Public notes", func() { m.navigate("/notes") }),
			widget.NewButton("Public collections", func() { m.navigate("/collections/public") }),
		),
	)
}

func (m *Manager) loginView() fyne.CanvasObject {
	username := widget.NewEntry()
	username.SetPlaceHolder("username")
	password := widget.NewPasswordEntry()
	password.SetPlaceHolder("password")
	status := widget.NewLabel("")

	var submit *widget.Button
	submit = widget.NewButton("Log in", func() {
		user, pass := strings.TrimSpace(username.Text), password.Text
		submit.Disable()
		status.SetText("Logging in...")
		m.goAsync(func() {
			ctx, cancel := m.app.RequestContext(m.ctx)
			defer cancel()
			err := m.app.Login(ctx, user, pass)
			m.callOnUI(func() {
				submit.Enable()
				if err != nil {
					status.SetText(app.FailureMessage(app.ActionLogin, err).Message)
					return
				}
				status.SetText("")
			})
		})
	})
	submit.Importance = widget.HighImportance
	password.OnSubmitted = func(string) { submit.OnTapped() }

	form := widget.NewForm(
		widget.NewFormItem("Username", username),
		widget.NewFormItem("Password", password),
	)
	return container.NewVBox(
		widget.NewLabelWithStyle("Log in", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		form,
		container.NewHBox(submit, widget.NewButton("Create an account", func() { m.navigate("/register") })),
		status,
	)
}

func (m *Manager) registerView() fyne.CanvasObject {
	username := widget.NewEntry()
	email := widget.NewEntry()
	password := widget.NewPasswordEntry()
	status := widget.NewLabel("")

	var submit *widget.Button
	submit = widget.NewButton("Register", func() {
		req := api.RegisterRequest{
			Username: strings.TrimSpace(username.Text),
			Email:    strings.TrimSpace(email.Text),
			Password: password.Text,
		}
		submit.Disable()
		m.goAsync(func() {
			ctx, cancel := m.app.RequestContext(m.ctx)
			defer cancel()
			_, err := m.app.Register(ctx, req)
			m.callOnUI(func() {
				submit.Enable()
				if err != nil {
					status.SetText(app.FailureMessage(app.ActionRegister, err).Message)
				}
			})
			if err == nil {
				m.showNotice("Account created. You can log in now.")
			}
		})
	})
	submit.Importance = widget.HighImportance

	return container.NewVBox(
		widget.NewLabelWithStyle("Create an account", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewForm(
			widget.NewFormItem("Username", username),
			widget.NewFormItem("Email", email),
			widget.NewFormItem("Password", password),
		),
		submit,
		status,
	)
}

func (m *Manager) publicNotesView() fyne.CanvasObject {
	list, setNotes := m.noteList()
	query := widget.NewEntry()
	query.SetPlaceHolder("Search notes")
	scopes := []string{string(api.ScopePublic)}
	if m.app.Session().IsLoggedIn() {
		scopes = append(scopes, string(api.ScopeMine), string(api.ScopeAll))
	}
	scope := widget.NewSelect(scopes, nil)
	scope.SetSelected(string(api.ScopePublic))

	search := func() {
		q := strings.TrimSpace(query.Text)
		if q == "" {
			load(m, app.ActionLoad, func(ctx context.Context) ([]api.Note, error) {
				return m.app.Notes().ListPublic(ctx, api.DefaultPage)
			}, setNotes)
			return
		}
		sc := api.SearchScope(scope.Selected)
		load(m, app.ActionLoad, func(ctx context.Context) ([]api.Note, error) {
			return m.app.Notes().Search(ctx, q, sc)
		}, setNotes)
	}
	query.OnSubmitted = func(string) { search() }
	search()

	bar := container.NewBorder(nil, nil, nil, container.NewHBox(scope, widget.NewButton("Search", search)), query)
	return container.NewBorder(bar, nil, nil, nil, list)
}

func (m *Manager) myNotesView() fyne.CanvasObject {
	list, setNotes := m.noteList()
	load(m, app.ActionLoad, m.app.Notes().ListMine, setNotes)
	header := container.NewHBox(
		widget.NewLabelWithStyle("My notes", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewButton("New note", func() { m.navigate("/create-note") }),
	)
	return container.NewBorder(header, nil, nil, nil, list)
}

// noteList returns a list of notes that opens the detail view on selection,
// and the setter that fills it.
func (m *Manager) noteList() (fyne.CanvasObject, func([]api.Note)) {
	var notes []api.Note
	list := widget.NewList(
		func() int { return len(notes) },
		func() fyne.CanvasObject {
			return container.NewVBox(
				widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
				widget.NewLabel(""),
			)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(notes) {
				return
			}
			note := notes[id]
			box := obj.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(noteHeading(note))
			box.Objects[1].(*widget.Label).SetText(markdown.Excerpt(note.Content, excerptLength))
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		list.UnselectAll()
		if id < 0 || id >= len(notes) {
			return
		}
		m.navigate("/notes/" + strconv.Itoa(notes[id].ID))
	}
	empty := widget.NewLabel("No notes yet.")
	empty.Hide()
	set := func(loaded []api.Note) {
		notes = loaded
		setVisible(empty, len(notes) == 0)
		list.Refresh()
	}
	return container.NewStack(list, empty), set
}

func noteHeading(note api.Note) string {
	heading := note.Title
	if note.OwnerUsername != "" {
		heading += " by " + note.OwnerUsername
	}
	if !note.IsPublic {
		heading += " (private)"
	}
	return heading
}

func (m *Manager) noteDetailView(rawID string) fyne.CanvasObject {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return widget.NewLabel("Page not found")
	}
	title := widget.NewLabelWithStyle("Loading...", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	meta := widget.NewLabel("")
	body := widget.NewRichTextFromMarkdown("")
	body.Wrapping = fyne.TextWrapWord
	actions := container.NewHBox()

	load(m, app.ActionLoad, func(ctx context.Context) (api.Note, error) {
		return m.app.Notes().Get(ctx, id)
	}, func(note api.Note) {
		title.SetText(note.Title)
		meta.SetText(fmt.Sprintf("Updated %s", note.UpdatedAt.Format("2006-01-02 15:04")))
		if note.FileType == "md" {
			body.ParseMarkdown(note.Content)
		} else {
			body.Segments = []widget.RichTextSegment{&widget.TextSegment{Text: note.Content, Style: widget.RichTextStyleCodeBlock}}
			body.Refresh()
		}
		if user, ok := m.app.Session().User(); ok && user.ID == note.UserID {
			actions.Objects = []fyne.CanvasObject{m.deleteNoteButton(note)}
			actions.Refresh()
		}
	})

	return container.NewBorder(
		container.NewVBox(title, meta, actions, widget.NewSeparator()),
		nil, nil, nil,
		container.NewVScroll(body),
	)
}

func (m *Manager) deleteNoteButton(note api.Note) fyne.CanvasObject {
	btn := widget.NewButton("Delete", func() {
		dialog.ShowConfirm("Delete note", fmt.Sprintf("Delete %q?", note.Title), func(ok bool) {
			if !ok {
				return
			}
			m.goAsync(func() {
				ctx, cancel := m.app.RequestContext(m.ctx)
				defer cancel()
				if err := m.app.Notes().Delete(ctx, note.ID); err != nil {
					m.showFailure(app.ActionDelete, err)
					return
				}
				m.navigate("/my-notes")
			})
		}, m.win)
	})
	btn.Importance = widget.DangerImportance
	return btn
}

func (m *Manager) createNoteView() fyne.CanvasObject {
	title := widget.NewEntry()
	content := widget.NewMultiLineEntry()
	content.SetMinRowsVisible(14)
	content.Wrapping = fyne.TextWrapWord
	fileType := widget.NewRadioGroup([]string{"md", "txt"}, nil)
	fileType.Horizontal = true
	fileType.SetSelected("md")
	public := widget.NewCheck("Public", nil)
	public.SetChecked(true)

	preview := widget.NewRichTextFromMarkdown("")
	preview.Wrapping = fyne.TextWrapWord
	content.OnChanged = func(text string) {
		if fileType.Selected == "md" {
			preview.ParseMarkdown(text)
		}
	}

	var save *widget.Button
	save = widget.NewButton("Save", func() {
		note := api.NoteCreate{
			Title:    strings.TrimSpace(title.Text),
			Content:  content.Text,
			FileType: fileType.Selected,
			IsPublic: public.Checked,
		}
		save.Disable()
		m.goAsync(func() {
			ctx, cancel := m.app.RequestContext(m.ctx)
			defer cancel()
			_, err := m.app.Notes().Create(ctx, note)
			m.callOnUI(save.Enable)
			if err != nil {
				m.showFailure(app.ActionSave, err)
				return
			}
			m.navigate("/my-notes")
		})
	})
	save.Importance = widget.HighImportance

	form := widget.NewForm(
		widget.NewFormItem("Title", title),
		widget.NewFormItem("Format", fileType),
		widget.NewFormItem("", public),
	)
	editor := container.NewBorder(form, save, nil, nil, content)
	return container.NewHSplit(editor, container.NewVScroll(preview))
}

func (m *Manager) collectionsView(mine bool) fyne.CanvasObject {
	var collections []api.Collection
	list := widget.NewList(
		func() int { return len(collections) },
		func() fyne.CanvasObject {
			return container.NewVBox(
				widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
				widget.NewLabel(""),
			)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(collections) {
				return
			}
			c := collections[id]
			box := obj.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(fmt.Sprintf("%s (%d notes)", c.Name, c.NoteCount))
			box.Objects[1].(*widget.Label).SetText(c.Description)
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		list.UnselectAll()
		if id < 0 || id >= len(collections) {
			return
		}
		m.navigate("/collections/" + strconv.Itoa(collections[id].ID))
	}
	set := func(loaded []api.Collection) {
		collections = loaded
		list.Refresh()
	}
	fetch := func(ctx context.Context) ([]api.Collection, error) {
		if mine {
			return m.app.Collections().ListMine(ctx)
		}
		return m.app.Collections().ListPublic(ctx, api.DefaultPage)
	}
	reload := func() { load(m, app.ActionLoad, fetch, set) }
	reload()

	if !mine {
		return container.NewBorder(widget.NewLabelWithStyle("Public collections", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), nil, nil, nil, list)
	}

	name := widget.NewEntry()
	name.SetPlaceHolder("New collection name")
	public := widget.NewCheck("Public", nil)
	public.SetChecked(true)
	create := widget.NewButton("Create", func() {
		req := api.CollectionCreate{Name: strings.TrimSpace(name.Text), IsPublic: public.Checked}
		m.goAsync(func() {
			ctx, cancel := m.app.RequestContext(m.ctx)
			defer cancel()
			if _, err := m.app.Collections().Create(ctx, req); err != nil {
				m.showFailure(app.ActionSave, err)
				return
			}
			m.callOnUI(func() { name.SetText("") })
			reload()
		})
	})
	bar := container.NewBorder(nil, nil, nil, container.NewHBox(public, create), name)
	return container.NewBorder(bar, nil, nil, nil, list)
}

func (m *Manager) collectionDetailView(rawID string) fyne.CanvasObject {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return widget.NewLabel("Page not found")
	}
	title := widget.NewLabelWithStyle("Loading...", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	description := widget.NewLabel("")
	description.Wrapping = fyne.TextWrapWord
	owner := container.NewHBox()
	list, setNotes := m.noteList()

	reloadNotes := func() {
		load(m, app.ActionLoad, func(ctx context.Context) ([]api.Note, error) {
			return m.app.Collections().Notes(ctx, id)
		}, setNotes)
	}
	load(m, app.ActionLoad, func(ctx context.Context) (api.Collection, error) {
		return m.app.Collections().Get(ctx, id)
	}, func(c api.Collection) {
		title.SetText(c.Name)
		description.SetText(c.Description)
		if user, ok := m.app.Session().User(); ok && user.ID == c.UserID {
			owner.Objects = m.collectionOwnerActions(c, reloadNotes)
			owner.Refresh()
		}
		reloadNotes()
	})

	return container.NewBorder(
		container.NewVBox(title, description, owner, widget.NewSeparator()),
		nil, nil, nil,
		list,
	)
}

func (m *Manager) collectionOwnerActions(c api.Collection, reloadNotes func()) []fyne.CanvasObject {
	noteID := widget.NewEntry()
	noteID.SetPlaceHolder("Note ID")
	add := widget.NewButton("Add note", func() {
		nid, err := strconv.Atoi(strings.TrimSpace(noteID.Text))
		if err != nil {
			dialog.ShowError(fmt.Errorf("note ID must be a number"), m.win)
			return
		}
		m.goAsync(func() {
			ctx, cancel := m.app.RequestContext(m.ctx)
			defer cancel()
			if err := m.app.Collections().AddNote(ctx, c.ID, nid); err != nil {
				m.showFailure(app.ActionSave, err)
				return
			}
			m.callOnUI(func() { noteID.SetText("") })
			reloadNotes()
		})
	})
	integrate := widget.NewButton("Integrate", func() { m.showIntegrateDialog(c) })
	remove := widget.NewButton("Delete collection", func() {
		dialog.ShowConfirm("Delete collection", fmt.Sprintf("Delete %q?", c.Name), func(ok bool) {
			if !ok {
				return
			}
			m.goAsync(func() {
				ctx, cancel := m.app.RequestContext(m.ctx)
				defer cancel()
				if err := m.app.Collections().Delete(ctx, c.ID); err != nil {
					m.showFailure(app.ActionDelete, err)
					return
				}
				m.navigate("/my-collections")
			})
		}, m.win)
	})
	remove.Importance = widget.DangerImportance
	return []fyne.CanvasObject{container.NewGridWrap(fyne.NewSize(120, noteID.MinSize().Height), noteID), add, integrate, remove}
}

func (m *Manager) showIntegrateDialog(c api.Collection) {
	apiKey := widget.NewPasswordEntry()
	prompt := widget.NewMultiLineEntry()
	prompt.SetPlaceHolder("Optional instructions")
	items := []*widget.FormItem{
		widget.NewFormItem("API key", apiKey),
		widget.NewFormItem("Prompt", prompt),
	}
	dialog.ShowForm("Integrate "+c.Name, "Run", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		req := api.IntegrationRequest{APIKey: strings.TrimSpace(apiKey.Text), CustomPrompt: prompt.Text}
		load(m, app.ActionLoad, func(ctx context.Context) (api.IntegrationResponse, error) {
			return m.app.Collections().Integrate(ctx, c.ID, req)
		}, func(res api.IntegrationResponse) {
			result := widget.NewRichTextFromMarkdown(res.IntegratedContent)
			result.Wrapping = fyne.TextWrapWord
			scroll := container.NewVScroll(result)
			scroll.SetMinSize(fyne.NewSize(640, 420))
			dialog.ShowCustom(fmt.Sprintf("%s (%d notes)", c.Name, res.NoteCount), "Close", scroll, m.win)
		})
	}, m.win)
}
