/*
Copyright (c) 2025-2026 Cronan

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

// Package rom emulates the ZX81 ROM routines the chess program calls,
// without carrying a ROM image. Calls into the ROM are trapped by the
// CPU and routed here.
package rom

import (
	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/processor"
)

const (
	// ROM entry points the guest calls.
	PrintTrap memory.Pointer = 0x0010 // RST $10, print character in A
	ClsTrap   memory.Pointer = 0x0A2A // CLS

	// Where CLS places the expanded display file.
	displayBase memory.Pointer = 0x4800

	// Each display row is 32 characters plus the 0x76 terminator.
	rowStride = 33

	Columns = 32
	Rows    = 24
)

type Device struct {
	p        processor.Processor
	row, col int

	// OnPrint, when set, observes every character the guest prints.
	OnPrint func(code byte)
}

func (m *Device) Install(p processor.Processor) error {
	m.p = p
	if err := p.InstallTrapHandler(PrintTrap, m); err != nil {
		return err
	}
	return p.InstallTrapHandler(ClsTrap, m)
}

func (m *Device) Name() string {
	return "ZX81 ROM traps"
}

func (m *Device) Reset() {
	m.cls()
}

func (m *Device) Step(int) error {
	return nil
}

func (m *Device) HandleTrap(addr memory.Pointer) error {
	switch addr {
	case PrintTrap:
		m.print(m.p.GetRegisters().A)
	case ClsTrap:
		m.cls()
	}
	return nil
}

// cls writes a fully expanded display file and points D_FILE and
// DF_CC at it, the same layout the real ROM builds on a 16K machine.
func (m *Device) cls() {
	addr := displayBase
	m.p.WriteByte(addr, 0x76)
	addr++
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			m.p.WriteByte(addr, 0x00)
			addr++
		}
		m.p.WriteByte(addr, 0x76)
		addr++
	}

	m.p.WriteWord(processor.SysDFile, uint16(displayBase))
	m.p.WriteWord(processor.SysDFCC, uint16(displayBase)+1)
	m.row, m.col = 0, 0
}

func (m *Device) print(code byte) {
	if m.OnPrint != nil {
		m.OnPrint(code)
	}

	if code == 0x76 { // NEWLINE
		m.row++
		m.col = 0
	} else if m.row < Rows && m.col < Columns {
		m.p.WriteByte(m.cursor(), code)
		m.col++
	}
	m.p.WriteWord(processor.SysDFCC, uint16(m.cursor()))
}

func (m *Device) cursor() memory.Pointer {
	return displayBase + 1 + memory.Pointer(m.row*rowStride+m.col)
}
