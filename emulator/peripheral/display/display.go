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

// Package display interprets the ZX81 display file. The guest owns
// the display file in RAM and rewrites it whenever it likes, so every
// frame is parsed fresh from guest memory.
package display

import (
	"strings"
	"unicode"

	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/processor"
)

const (
	Columns = 32
	Rows    = 24

	rowScanLimit = 256
)

type Cell struct {
	Code    byte
	Inverse bool
}

type Grid [Rows][Columns]Cell

// Snapshot reads the display file pointed to by D_FILE. Rows are
// terminated by 0x76 and may be shorter than 32 columns; a collapsed
// display file simply yields blank rows.
func Snapshot(p processor.Processor) Grid {
	var g Grid

	addr := memory.Pointer(p.ReadWord(processor.SysDFile))
	if p.ReadByte(addr) == 0x76 {
		addr++
	}

	for row := 0; row < Rows; row++ {
		col := 0
		// Rows longer than 32 codes are corrupt, but the scan still
		// has to reach the terminator or every following row would
		// shift. rowScanLimit bounds a display file with no
		// terminators at all.
		for n := 0; n < rowScanLimit; n++ {
			b := p.ReadByte(addr)
			addr++
			if b == 0x76 {
				break
			}
			if col < Columns {
				g[row][col] = Cell{Code: b & 0x7F, Inverse: b&0x80 != 0}
				col++
			}
		}
	}
	return g
}

// String renders the grid as text. Inverse letters come out as
// lowercase so both piece colors survive the round trip to text.
func (g *Grid) String() string {
	var sb strings.Builder
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			c := g[row][col]
			r := Glyph(c.Code)
			if c.Inverse {
				r = unicode.ToLower(r)
			}
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
