// Package ui is the fyne desktop front end. One window shows the view of the
// current route; the navigator decides which one.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"noote/client/internal/apiclient"
	"noote/client/internal/app"
	"noote/client/internal/logging"
	"noote/client/internal/router"
	"noote/client/internal/session"
	"noote/client/internal/tokenstore"
)

// Options configures the UI manager. Fyne replaces the desktop app, for
// example with one from fyne.io/fyne/v2/test.
type Options struct {
	AppID   string
	AppName string
	Logger  *logging.Logger
	App     *app.Application
	Fyne    fyne.App
}

// Manager owns the fyne app and its main window.
type Manager struct {
	fyne    fyne.App
	appName string
	logger  *logging.Logger
	app     *app.Application

	win         fyne.Window
	body        *fyne.Container
	userLabel   *widget.Label
	loginBtn    *widget.Button
	logoutBtn   *widget.Button
	registerBtn *widget.Button
	backBtn     *widget.Button
	myNotesBtn  *widget.Button
	myCollsBtn  *widget.Button
	newNoteBtn  *widget.Button

	ctx          context.Context
	cancel       context.CancelFunc
	unsubscribe  []func()
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	stopped      chan struct{}
}

// NewManager creates the window and subscribes it to the navigator and the
// session.
func NewManager(opts Options) (*Manager, error) {
	if opts.App == nil {
		return nil, errors.New("ui: application is nil")
	}
	appID := strings.TrimSpace(opts.AppID)
	if appID == "" {
		appID = "noote.client"
	}
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = "Noote"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	fyneApp := opts.Fyne
	if fyneApp == nil {
		fyneApp = fyneapp.NewWithID(appID)
	}
	fyneApp.Settings().SetTheme(newNoteTheme())
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		fyne:    fyneApp,
		appName: name,
		logger:  logger,
		app:     opts.App,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	m.buildWindow()
	m.unsubscribe = append(m.unsubscribe,
		m.app.Navigator().OnTransition(m.onTransition),
		m.app.Session().Subscribe(m.onSession),
	)
	m.app.OnSessionReset(m.onSessionReset)
	return m, nil
}

// Start restores the session and shows the initial route in the background.
func (m *Manager) Start(initialPath string) {
	m.goAsync(func() {
		ctx, cancel := m.app.RequestContext(m.ctx)
		defer cancel()
		if _, err := m.app.Start(ctx, initialPath); err != nil {
			m.logger.Errorf("start navigation failed: %v", err)
			m.showFailure(app.ActionLoad, err)
		}
	})
}

// RunMainLoop blocks until the window is closed.
func (m *Manager) RunMainLoop() {
	m.win.ShowAndRun()
}

// Shutdown cancels background work and quits the fyne app.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.cancel()
		for _, fn := range m.unsubscribe {
			fn()
		}
		close(m.stopped)
		m.callOnUI(func() {
			m.fyne.Quit()
		})
	})
}

// Done is closed after Shutdown.
func (m *Manager) Done() <-chan struct{} { return m.stopped }

// WaitAsync waits for background requests to finish.
func (m *Manager) WaitAsync(timeout time.Duration) bool {
	if timeout <= 0 {
		m.wg.Wait()
		return true
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (m *Manager) buildWindow() {
	win := m.fyne.NewWindow(m.appName)
	win.Resize(fyne.NewSize(980, 680))
	win.CenterOnScreen()
	win.SetMaster()

	nav := func(path string) func() { return func() { m.navigate(path) } }
	m.backBtn = widget.NewButton("Back", m.back)
	m.backBtn.Disable()
	m.myNotesBtn = widget.NewButton("My notes", nav("/my-notes"))
	m.myCollsBtn = widget.NewButton("My collections", nav("/my-collections"))
	m.newNoteBtn = widget.NewButton("New note", nav("/create-note"))
	m.loginBtn = widget.NewButton("Log in", nav(router.PathLogin))
	m.loginBtn.Importance = widget.HighImportance
	m.registerBtn = widget.NewButton("Register", nav("/register"))
	m.logoutBtn = widget.NewButton("Log out", m.logout)
	m.userLabel = widget.NewLabel("")

	toolbar := container.NewHBox(
		m.backBtn,
		widget.NewButton("Home", nav(router.PathHome)),
		widget.NewButton("Notes", nav("/notes")),
		widget.NewButton("Collections", nav("/collections/public")),
		m.myNotesBtn,
		m.myCollsBtn,
		m.newNoteBtn,
		layout.NewSpacer(),
		m.userLabel,
		m.loginBtn,
		m.registerBtn,
		m.logoutBtn,
	)
	m.body = container.NewStack(widget.NewLabel("Loading..."))
	win.SetContent(container.NewBorder(
		container.NewVBox(container.NewPadded(toolbar), widget.NewSeparator()),
		nil, nil, nil,
		container.NewPadded(m.body),
	))
	win.SetCloseIntercept(func() {
		m.Shutdown()
	})
	m.win = win
	m.applySession(session.Snapshot{}, "")
}

func (m *Manager) onTransition(t router.Transition) {
	m.callOnUI(func() {
		m.render(t.To)
		if m.app.Navigator().CanGoBack() {
			m.backBtn.Enable()
		} else {
			m.backBtn.Disable()
		}
		if t.Outcome.Decision == router.Redirected && !t.Hard {
			m.showNotice("Please log in to open " + t.Outcome.Requested)
		}
	})
}

func (m *Manager) onSession(snap session.Snapshot) {
	expiry := ""
	if snap.IsLoggedIn {
		if claims, ok := m.app.TokenClaims(m.ctx); ok {
			expiry = describeExpiry(claims, time.Now())
		}
	}
	m.callOnUI(func() { m.applySession(snap, expiry) })
}

func (m *Manager) onSessionReset(apiclient.ResetEvent) {
	m.showNotice("Your session has expired. Please log in again.")
}

func (m *Manager) applySession(snap session.Snapshot, expiry string) {
	loggedIn := snap.IsLoggedIn && snap.User != nil
	if loggedIn {
		text := "Signed in as " + snap.User.Username
		if expiry != "" {
			text += " (" + expiry + ")"
		}
		m.userLabel.SetText(text)
	} else {
		m.userLabel.SetText("Not signed in")
	}
	for _, btn := range []*widget.Button{m.logoutBtn, m.myNotesBtn, m.myCollsBtn, m.newNoteBtn} {
		setVisible(btn, loggedIn)
	}
	setVisible(m.loginBtn, !loggedIn)
	setVisible(m.registerBtn, !loggedIn)
}

func (m *Manager) render(loc router.Location) {
	content := m.viewFor(loc)
	m.body.Objects = []fyne.CanvasObject{content}
	m.body.Refresh()
	m.win.SetTitle(fmt.Sprintf("%s - %s", m.appName, titleFor(loc.Route)))
}

func (m *Manager) navigate(path string) {
	m.goAsync(func() {
		if _, err := m.app.Navigate(m.ctx, path); err != nil {
			m.showFailure(app.ActionLoad, err)
		}
	})
}

func (m *Manager) back() {
	m.goAsync(func() {
		if _, err := m.app.Navigator().Back(m.ctx); err != nil && !errors.Is(err, router.ErrNoHistory) {
			m.showFailure(app.ActionLoad, err)
		}
	})
}

func (m *Manager) logout() {
	m.goAsync(func() {
		if err := m.app.Logout(m.ctx); err != nil {
			m.showFailure(app.ActionLoad, err)
		}
	})
}

// goAsync runs fn off the UI goroutine. Network calls and navigation must not
// block fyne callbacks.
func (m *Manager) goAsync(fn func()) {
	select {
	case <-m.stopped:
		return
	default:
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// load runs fetch in the background and hands its result to apply on the UI
// goroutine, or shows the failure.
func load[T any](m *Manager, action app.Action, fetch func(ctx context.Context) (T, error), apply func(T)) {
	m.goAsync(func() {
		ctx, cancel := m.app.RequestContext(m.ctx)
		defer cancel()
		value, err := fetch(ctx)
		if err != nil {
			if m.ctx.Err() == nil {
				m.logger.Errorf("%s failed: %v", action, err)
				m.showFailure(action, err)
			}
			return
		}
		m.callOnUI(func() { apply(value) })
	})
}

func (m *Manager) showFailure(action app.Action, err error) {
	if apiclient.IsUnauthorized(err) && action != app.ActionLogin {
		// The reset path already shows the login view and a notice.
		return
	}
	failure := app.FailureMessage(action, err)
	m.callOnUI(func() {
		dialog.ShowError(errors.New(failure.Message), m.win)
	})
}

func (m *Manager) showNotice(message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	m.callOnUI(func() {
		dialog.ShowInformation(m.appName, message, m.win)
	})
}

func (m *Manager) callOnUI(fn func()) {
	if m.fyne == nil || fn == nil {
		return
	}
	if drv := m.fyne.Driver(); drv != nil {
		drv.DoFromGoroutine(fn, false)
		return
	}
	fn()
}

// describeExpiry renders the expiry of the stored token for the toolbar.
func describeExpiry(claims tokenstore.Claims, now time.Time) string {
	exp := claims.ExpiresAt
	switch {
	case exp.IsZero():
		return ""
	case claims.Expired(now):
		return "token expired"
	}
	exp, now = exp.Local(), now.Local()
	if exp.YearDay() == now.YearDay() && exp.Year() == now.Year() {
		return "token expires " + exp.Format("15:04")
	}
	return "token expires " + exp.Format("Jan 2 15:04")
}

func setVisible(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}

func titleFor(route router.Route) string {
	switch route.Name {
	case "home":
		return "Home"
	case "login":
		return "Log in"
	case "register":
		return "Register"
	case "notes":
		return "Public notes"
	case "note-detail":
		return "Note"
	case "my-notes":
		return "My notes"
	case "create-note":
		return "New note"
	case "public-collections":
		return "Collections"
	case "my-collections":
		return "My collections"
	case "collection-detail":
		return "Collection"
	default:
		return route.Name
	}
}
