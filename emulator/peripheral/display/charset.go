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

// The ZX81 has its own 6-bit character set. Codes 0x01 to 0x0A are
// the block and shade graphics used for the dark board squares.
var charset = [64]rune{
	' ', '▘', '▝', '▀', '▖', '▌', '▞', '▛',
	'▒', '▒', '▒', '"', '£', '$', ':', '?',
	'(', ')', '>', '<', '=', '+', '-', '*',
	'/', ';', ',', '.', '0', '1', '2', '3',
	'4', '5', '6', '7', '8', '9', 'A', 'B',
	'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J',
	'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R',
	'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
}

// Glyph maps a display code to a printable rune. The inverse video
// bit must be stripped first.
func Glyph(code byte) rune {
	if code >= 0x40 {
		return '?'
	}
	return charset[code]
}
