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

package keyboard

import (
	"errors"

	"github.com/gdamore/tcell"
)

func (m *Device) SendKeyEvent(ev interface{}) error {
	switch t := ev.(type) {
	case *tcell.EventKey:
		if t.Key() != tcell.KeyRune {
			return errors.New("unknown key")
		}
		code, ok := Encode(t.Rune())
		if !ok {
			return errors.New("key has no ZX81 code")
		}
		return m.Enqueue(code)
	default:
		return errors.New("unknown event type")
	}
}
