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

package tape_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"

	"github.com/Cronan/zx81-chess/emulator/tape"
)

func testCode() []byte {
	code := make([]byte, tape.EntryOffset+3)
	code[tape.EntryOffset] = 0xCD // CALL at the entry point
	return code
}

func TestBuildLayout(t *testing.T) {
	code := testCode()
	p := tape.Build(code)

	// The REM content must land at $4082.
	codeOffset := int(tape.CodeBase - tape.LoadBase)
	if p[codeOffset-1] != 0xEA {
		t.Errorf("expected REM token before the code, got 0x%02X", p[codeOffset-1])
	}
	if !bytes.Equal(p[codeOffset:codeOffset+len(code)], code) {
		t.Error("machine code not at $4082")
	}

	// Line 1 header: number big-endian, length little-endian.
	if n := binary.BigEndian.Uint16(p[116:]); n != 1 {
		t.Errorf("first line number = %d", n)
	}
	if l := binary.LittleEndian.Uint16(p[118:]); int(l) != len(code)+2 {
		t.Errorf("first line length = %d, expected %d", l, len(code)+2)
	}

	// D_FILE must point at the collapsed display file.
	dfile := binary.LittleEndian.Uint16(p[3:])
	dfileOffset := int(dfile) - int(tape.LoadBase)
	for i := 0; i < 25; i++ {
		if p[dfileOffset+i] != 0x76 {
			t.Fatalf("display file byte %d = 0x%02X, expected 0x76", i, p[dfileOffset+i])
		}
	}

	if p[len(p)-1] != 0x80 {
		t.Error("variables area must end with 0x80")
	}
}

func TestLoadPFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := tape.Create(fs, "chess.p", testCode()); err != nil {
		t.Fatal(err)
	}

	img, err := tape.Load(fs, "chess.p")
	if err != nil {
		t.Fatal(err)
	}
	if img.Base != tape.LoadBase {
		t.Errorf("base = %v, expected %v", img.Base, tape.LoadBase)
	}
	if img.Entry != tape.CodeBase+tape.EntryOffset {
		t.Errorf("entry = %v", img.Entry)
	}
	if img.Raw {
		t.Error("a .P image is not raw")
	}
}

func TestLoadRawBinary(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "chess.bin", testCode(), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := tape.Load(fs, "chess.bin")
	if err != nil {
		t.Fatal(err)
	}
	if !img.Raw {
		t.Error("a .bin image is raw")
	}
	if img.Base != tape.CodeBase {
		t.Errorf("base = %v, expected %v", img.Base, tape.CodeBase)
	}
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	if _, err := tape.Load(fs, "missing.p"); err == nil {
		t.Error("missing file should fail")
	}

	afero.WriteFile(fs, "short.p", []byte{1, 2, 3}, 0644)
	if _, err := tape.Load(fs, "short.p"); err == nil {
		t.Error("truncated file should fail")
	}

	afero.WriteFile(fs, "image.wav", testCode(), 0644)
	if _, err := tape.Load(fs, "image.wav"); err == nil {
		t.Error("unknown extension should fail")
	}
}
