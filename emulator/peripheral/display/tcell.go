/*
Copyright (C) 2025-2026 Cronan

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package display

import (
	"sync"
	"time"

	"github.com/gdamore/tcell"
)

type (
	redrawEvent struct{}
	quitEvent   struct{}
)

// KeyHandler receives the key events the terminal captures.
type KeyHandler interface {
	SendKeyEvent(interface{}) error
}

// Terminal renders the display file grid in the host terminal and
// feeds key presses to the keyboard latch.
type Terminal struct {
	lock     sync.RWMutex
	quitChan chan struct{}
	reqChan  chan struct{}
	quitOnce sync.Once

	dirty bool
	grid  Grid

	keyboard KeyHandler
	screen   tcell.Screen
}

func NewTerminal(keys KeyHandler) (*Terminal, error) {
	m := &Terminal{keyboard: keys}
	if err := m.startRenderLoop(); err != nil {
		return nil, err
	}
	return m, nil
}

// Render publishes a new frame. The actual paint happens on the
// event loop at the next redraw tick.
func (m *Terminal) Render(g Grid) {
	m.lock.Lock()
	m.grid = g
	m.dirty = true
	m.lock.Unlock()
}

// QuitRequested signals that the user asked to leave.
func (m *Terminal) QuitRequested() <-chan struct{} {
	return m.reqChan
}

func (m *Terminal) Close() error {
	m.screen.PostEventWait(tcell.NewEventInterrupt(quitEvent{}))
	<-m.quitChan
	return nil
}

func (m *Terminal) requestQuit() {
	m.quitOnce.Do(func() { close(m.reqChan) })
}

func (m *Terminal) startRenderLoop() error {
	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err = s.Init(); err != nil {
		return err
	}

	s.HideCursor()
	s.DisableMouse()
	s.Clear()

	m.screen = s
	m.dirty = true
	m.quitChan = make(chan struct{})
	m.reqChan = make(chan struct{})

	redrawTicker := time.NewTicker(time.Second / 30)
	go func() {
		for {
			ev := s.PollEvent()
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyEscape, tcell.KeyF12:
					m.requestQuit()
				default:
					m.keyboard.SendKeyEvent(ev)
				}
			case *tcell.EventResize:
				s.Sync()
				m.lock.Lock()
				m.dirty = true
				m.lock.Unlock()
			case *tcell.EventInterrupt:
				switch ev.Data().(type) {
				case quitEvent:
					s.Fini()
					redrawTicker.Stop()
					close(m.quitChan)
					return
				case redrawEvent:
					m.lock.Lock()
					for y := 0; y < Rows; y++ {
						for x := 0; x < Columns; x++ {
							c := m.grid[y][x]
							style := tcell.StyleDefault.Reverse(c.Inverse)
							s.SetCell(x, y, style, Glyph(c.Code))
						}
					}
					m.dirty = false
					m.lock.Unlock()
					s.Show()
				}
			}
		}
	}()

	go func() {
		for range redrawTicker.C {
			m.lock.RLock()
			dirty := m.dirty
			m.lock.RUnlock()
			if dirty {
				s.PostEvent(tcell.NewEventInterrupt(redrawEvent{}))
			}
		}
	}()

	return nil
}
