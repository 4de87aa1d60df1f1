package main

import (
	"fmt"
	"strings"

	"cloud.google.com/go/logging"
	"github.com/jroimartin/gocui"
	"github.com/mgutz/ansi"

	"github.com/selectL-L/sancho/lib/dicelang"
	log "github.com/selectL-L/sancho/lib/logger"
)

var (
	promptColor = ansi.ColorFunc("cyan+b")
	totalColor  = ansi.ColorFunc("green+b")
	errorColor  = ansi.ColorFunc("red")
)

func main() {
	log := log.New("sancho-cli", log.WithLocal(true), log.WithDebug(true), log.WithDefaultSeverity(logging.Info))

	g, err := gocui.NewGui(gocui.Output256)
	if err != nil {
		log.Fatalf("failed to create UI: %v", err)
	}
	defer g.Close()

	g.Cursor = true
	g.Mouse = true

	g.SetManagerFunc(layout)

	if err := keybindings(g); err != nil {
		log.Fatalf("Could not set keybindings: %v", err)
	}

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Fatalf("Error in Main Loop: %v", err)
	}
}

func cmdEditor(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyEnter:
		return
	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	case key == gocui.KeyDelete:
		v.EditDelete(false)
	case key == gocui.KeyArrowLeft:
		v.MoveCursor(-1, 0, true)
	case key == gocui.KeyArrowRight:
		v.MoveCursor(1, 0, true)
	}
}

func nextView(g *gocui.Gui, v *gocui.View) error {
	if v == nil || v.Name() == "side" {
		_, err := g.SetCurrentView("input")
		v, _ := g.View("side")
		g.Cursor = true
		v.Highlight = false
		return err
	}
	v, err := g.SetCurrentView("side")
	g.Cursor = false
	v.Highlight = true
	return err
}

func cursorDown(g *gocui.Gui, v *gocui.View) error {
	if v != nil {
		cx, cy := v.Cursor()
		if err := v.SetCursor(cx, cy+1); err != nil {
			ox, oy := v.Origin()
			if err := v.SetOrigin(ox, oy+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func cursorUp(g *gocui.Gui, v *gocui.View) error {
	if v != nil {
		ox, oy := v.Origin()
		cx, cy := v.Cursor()
		if err := v.SetCursor(cx, cy-1); err != nil && oy > 0 {
			if err := v.SetOrigin(ox, oy-1); err != nil {
				return err
			}
		}
	}
	return nil
}

// rerollLine rolls the history entry under the cursor again.
func rerollLine(g *gocui.Gui, v *gocui.View) error {
	var l string
	var err error

	_, cy := v.Cursor()
	if l, err = v.Line(cy); err != nil || strings.TrimSpace(l) == "" {
		return nil
	}
	f, _ := g.View("main")
	fmt.Fprint(f, renderRoll(l))
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

func keybindings(g *gocui.Gui) error {
	if err := g.SetKeybinding("side", gocui.KeyTab, gocui.ModNone, nextView); err != nil {
		return err
	}
	if err := g.SetKeybinding("side", gocui.KeyArrowDown, gocui.ModNone, cursorDown); err != nil {
		return err
	}
	if err := g.SetKeybinding("side", gocui.KeyArrowUp, gocui.ModNone, cursorUp); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("side", gocui.KeyEnter, gocui.ModNone, rerollLine); err != nil {
		return err
	}
	if err := g.SetKeybinding("input", gocui.KeyEnter, gocui.ModNone, executeCommand); err != nil {
		return err
	}
	if err := g.SetKeybinding("input", gocui.KeyTab, gocui.ModNone, nextView); err != nil {
		return err
	}
	return nil
}

// renderRoll resolves one notation and formats the exchange for the rolls
// view.
func renderRoll(cmd string) string {
	var b strings.Builder
	b.WriteString(promptColor("$ " + cmd))
	b.WriteRune('\n')
	result, err := dicelang.ParseAndRoll(cmd)
	if err != nil {
		b.WriteString(" " + errorColor(err.Error()) + "\n")
		return b.String()
	}
	for _, outcome := range result.Outcomes {
		b.WriteString(" " + outcome.String() + "\n")
	}
	b.WriteString(fmt.Sprintf(" %s = %s\n", result.Notation, totalColor(fmt.Sprintf("%d", result.Total))))
	return b.String()
}

func executeCommand(g *gocui.Gui, v *gocui.View) error {
	cmd := strings.TrimSpace(v.Buffer())
	if cmd == "" {
		return nil
	}
	f, _ := g.View("main")
	fmt.Fprint(f, renderRoll(cmd))
	inputView, _ := g.View("input")
	inputView.SetCursor(0, 0)
	inputView.Clear()
	historyView, _ := g.View("side")
	fmt.Fprint(historyView, cmd+"\n")
	return nil
}

func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if v, err := g.SetView("side", 0, 0, 19, maxY-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "history"
		v.SelBgColor = gocui.ColorCyan
		v.SelFgColor = gocui.ColorBlack
	}
	if v, err := g.SetView("main", 20, 0, maxX-1, maxY-5); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "rolls"
		v.Autoscroll = true
		v.Editable = false
		v.Wrap = true
	}
	if v, err := g.SetView("input", 20, maxY-4, maxX-1, maxY-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Editor = gocui.EditorFunc(cmdEditor)
		v.SelBgColor = gocui.ColorCyan
		v.SelFgColor = gocui.ColorBlack
		v.Highlight = false
		v.Frame = true
		v.Editable = true
		v.Wrap = false
		v.Title = "input"
		if _, err := g.SetCurrentView("input"); err != nil {
			return err
		}
	}
	if v, err := g.SetView("footer", -1, maxY-2, maxX, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.BgColor = 238
		v.FgColor = gocui.ColorWhite
		v.Highlight = false
		v.Frame = false
		fmt.Fprint(v, "sancho: enter dice notation, tab for history, ctrl-c to quit")
	}
	return nil
}
