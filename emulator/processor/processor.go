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

package processor

import (
	"errors"
	"fmt"

	"github.com/Cronan/zx81-chess/emulator/memory"
)

// ZX81 system variables. The guest image keeps these at fixed
// addresses in the 0x4000 page so the host can inspect and poke them.
const (
	SysErrNr  memory.Pointer = 0x4000
	SysFlags  memory.Pointer = 0x4001
	SysRamTop memory.Pointer = 0x4004
	SysDFile  memory.Pointer = 0x400C
	SysDFCC   memory.Pointer = 0x400E
	SysLastK  memory.Pointer = 0x4025
	SysCDFlag memory.Pointer = 0x403B
)

type Stats struct {
	NumInstructions uint64
	NumHalts        uint64
	RX, TX          uint64
}

var (
	ErrCPUHalt         = errors.New("CPU HALT")
	ErrHaltNotServiced = errors.New("halted CPU was not serviced")
	ErrNotHalted       = errors.New("CPU is not halted")
)

// UnimplementedOpcodeError is fatal. The chess program only uses a
// subset of the Z80 so anything outside it means a corrupt image or
// an emulation bug, and we want the exact byte in the report.
type UnimplementedOpcodeError struct {
	Prefix, Opcode byte
	Addr           memory.Pointer
}

func (e *UnimplementedOpcodeError) Error() string {
	if e.Prefix != 0 {
		return fmt.Sprintf("unimplemented opcode 0x%02X 0x%02X at %v", e.Prefix, e.Opcode, e.Addr)
	}
	return fmt.Sprintf("unimplemented opcode 0x%02X at %v", e.Opcode, e.Addr)
}

type Debug interface {
	GetStats() Stats
}

// TrapHandler intercepts a call into the ROM area. The handler runs
// in place of the ROM routine and the CPU returns to the caller.
type TrapHandler interface {
	HandleTrap(addr memory.Pointer) error
}

// KeyLatch delivers the next pending key, or the no-key sentinel, to
// the LAST_K system variable when a halt is serviced.
type KeyLatch interface {
	Deliver()
}

type Processor interface {
	Debug

	ReadByte(addr memory.Pointer) byte
	WriteByte(addr memory.Pointer, data byte)
	ReadWord(addr memory.Pointer) uint16
	WriteWord(addr memory.Pointer, data uint16)

	GetRegisters() *Registers
	GetMappedMemoryDevice(addr memory.Pointer) memory.Memory

	InstallMemoryDevice(device memory.Memory, from, to memory.Pointer) error
	InstallTrapHandler(addr memory.Pointer, handler TrapHandler) error

	Halted() bool
}
