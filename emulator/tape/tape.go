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

// Package tape reads and writes ZX81 tape files. A .P file is a raw
// memory dump running from the system variables at $4009 to the end
// of the BASIC area, with the machine code hidden in a REM statement.
package tape

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Cronan/zx81-chess/emulator/memory"
)

const (
	// A .P file loads at the start of the system variables.
	LoadBase memory.Pointer = 0x4009

	// The BASIC area follows the system variables.
	BasicBase memory.Pointer = 0x407D

	// Address of the first REM byte, the classic 16514.
	CodeBase memory.Pointer = 0x4082

	// The machine code starts with 109 bytes of board and lookup
	// tables; the entry point follows them.
	EntryOffset = 109

	StackTop memory.Pointer = 0x43FF

	sysvarsLen = 116 // $4009 to $407C
)

type Image struct {
	Data []byte
	Base memory.Pointer

	// Entry is where RAND USR would jump.
	Entry memory.Pointer

	// Raw images carry no system variables; the loader has to
	// synthesize them.
	Raw bool
}

// Load reads a tape image. Plain .bin files hold bare machine code
// destined for the REM statement.
func Load(fs afero.Fs, name string) (*Image, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".p":
		if len(data) < sysvarsLen+5 {
			return nil, fmt.Errorf("%s is too short for a .P file", name)
		}
		return &Image{
			Data:  data,
			Base:  LoadBase,
			Entry: CodeBase + EntryOffset,
		}, nil
	case ".bin", "":
		if len(data) <= EntryOffset {
			return nil, fmt.Errorf("%s is too short to hold the data tables", name)
		}
		return &Image{
			Data:  data,
			Base:  CodeBase,
			Entry: CodeBase + EntryOffset,
			Raw:   true,
		}, nil
	default:
		return nil, errors.New("unknown tape format: " + name)
	}
}

// Create builds a .P file around the given machine code and writes
// it to the filesystem.
func Create(fs afero.Fs, name string, code []byte) error {
	return afero.WriteFile(fs, name, Build(code), 0644)
}

// Build wraps machine code in the standard two line loader program:
//
//	1 REM <machine code>
//	2 RAND USR 16514
func Build(code []byte) []byte {
	basic := basicProgram(code)

	dfileAddr := uint16(BasicBase) + uint16(len(basic))
	varsAddr := dfileAddr + 25
	elineAddr := varsAddr + 1

	p := make([]byte, 0, sysvarsLen+len(basic)+26)
	p = append(p, sysvars(dfileAddr, varsAddr, elineAddr)...)
	p = append(p, basic...)
	for i := 0; i < 25; i++ { // collapsed display file
		p = append(p, 0x76)
	}
	p = append(p, 0x80) // empty variables area
	return p
}

func basicLine(num uint16, content []byte) []byte {
	line := make([]byte, 4, 5+len(content))
	binary.BigEndian.PutUint16(line, num)
	binary.LittleEndian.PutUint16(line[2:], uint16(len(content)+1))
	line = append(line, content...)
	return append(line, 0x76)
}

func basicProgram(code []byte) []byte {
	rem := append([]byte{0xEA}, code...) // REM <code>

	// RAND USR 16514. The digits are followed by the number marker
	// and the value as a ZX81 float.
	randUsr := []byte{
		0xF9, 0xD4, // RAND USR
		0x1D, 0x22, 0x21, 0x1D, 0x20, // 16514
		0x7E,                         // number marker
		0x00, 0x00, 0x00, 0x40, 0x82, // 16514 as float
	}

	return append(basicLine(1, rem), basicLine(2, randUsr)...)
}

// sysvars fills in the system variables the way the ROM saves them.
// Most are only there to keep a real ZX81 loader happy.
func sysvars(dfileAddr, varsAddr, elineAddr uint16) []byte {
	v := make([]byte, sysvarsLen)
	put := func(off int, val uint16) {
		binary.LittleEndian.PutUint16(v[off:], val)
	}

	v[0] = 0x00                        // VERSN
	put(3, dfileAddr)                  // D_FILE
	put(5, dfileAddr+1)                // DF_CC
	put(7, varsAddr)                   // VARS
	put(11, elineAddr)                 // E_LINE
	put(13, uint16(BasicBase))         // CH_ADD
	put(17, elineAddr+1)               // STKBOT
	put(19, elineAddr+1)               // STKEND
	put(22, 0x405D)                    // MEM points at MEMBOT
	v[25] = 2                          // DF_SZ
	put(28, 0xFFFF)                    // LAST_K, no key
	v[30] = 0xFF                       // DEBOUNCE
	v[31] = 55                         // MARGIN, PAL
	put(32, uint16(BasicBase))         // NXTLIN
	put(39, 0x0C8D)                    // T_ADDR
	put(43, 0xFFFF)                    // FRAMES
	v[47] = 0xBC                       // PR_CC
	v[48], v[49] = 33, 24              // S_POSN
	v[50] = 0x40                       // CDFLAG, slow mode
	return v
}
