package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// noteTheme is a light palette with a paper-like background for reading.
type noteTheme struct {
	base fyne.Theme
}

func newNoteTheme() fyne.Theme {
	return &noteTheme{base: theme.LightTheme()}
}

func (t *noteTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 250, G: 248, B: 243, A: 255}
	case theme.ColorNamePrimary, theme.ColorNameHyperlink:
		return color.NRGBA{R: 46, G: 110, B: 88, A: 255}
	case theme.ColorNameForeground:
		return color.NRGBA{R: 33, G: 33, B: 30, A: 255}
	case theme.ColorNameInputBackground:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	case theme.ColorNameSeparator:
		return color.NRGBA{R: 222, G: 218, B: 208, A: 255}
	case theme.ColorNameDisabled:
		return color.NRGBA{R: 172, G: 170, B: 160, A: 255}
	default:
		return t.base.Color(name, variant)
	}
}

func (t *noteTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *noteTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *noteTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return t.base.Size(name) + 1
	}
	return t.base.Size(name)
}
