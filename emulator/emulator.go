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

package emulator

import (
	"errors"
	"flag"
	"time"

	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/peripheral"
	"github.com/Cronan/zx81-chess/emulator/peripheral/display"
	"github.com/Cronan/zx81-chess/emulator/peripheral/keyboard"
	"github.com/Cronan/zx81-chess/emulator/peripheral/ram"
	"github.com/Cronan/zx81-chess/emulator/peripheral/rom"
	"github.com/Cronan/zx81-chess/emulator/processor"
	"github.com/Cronan/zx81-chess/emulator/processor/cpu"
	"github.com/Cronan/zx81-chess/emulator/tape"
)

// FrameCycles approximates one 50Hz frame of a 3.25MHz Z80.
const FrameCycles = 65000

// The guest idles by halting once per frame looking for a key. After
// this many empty halts in a row it has nothing left to do.
const idleHalts = 50

var (
	frameRate = 50
	dirtyRAM  bool
)

func init() {
	flag.IntVar(&frameRate, "hz", frameRate, "Interactive frame rate")
	flag.BoolVar(&dirtyRAM, "dirty-ram", false, "Leave RAM scrambled on power-up")
}

type Machine struct {
	cpu  *cpu.CPU
	keys *keyboard.Device
	rom  *rom.Device
}

func New() *Machine {
	m := &Machine{
		keys: &keyboard.Device{},
		rom:  &rom.Device{},
	}
	m.cpu = cpu.NewCPU([]peripheral.Peripheral{
		&ram.Device{Clear: !dirtyRAM}, // RAM needs to go first since it maps the full address space.
		m.rom,
		m.keys,
	})
	return m
}

func (m *Machine) Close() {
	m.cpu.Close()
}

func (m *Machine) Keys() *keyboard.Device {
	return m.keys
}

func (m *Machine) ROM() *rom.Device {
	return m.rom
}

func (m *Machine) Processor() processor.Processor {
	return m.cpu
}

func (m *Machine) Halted() bool {
	return m.cpu.Halted()
}

func (m *Machine) Service() error {
	return m.cpu.Service()
}

func (m *Machine) Snapshot() display.Grid {
	return display.Snapshot(m.cpu)
}

// Load installs a tape image and resets the machine to its entry
// point. Raw binaries get their system variables set up by hand, the
// way the ROM would have left them.
func (m *Machine) Load(img *tape.Image) {
	for i, b := range img.Data {
		m.cpu.WriteByte(img.Base+memory.Pointer(i), b)
	}

	m.cpu.Reset(img.Entry, tape.StackTop)

	// The variables below the tape load address are never part of a
	// .P dump and always come from the host.
	m.cpu.WriteByte(processor.SysErrNr, 0xFF)
	m.cpu.WriteByte(processor.SysFlags, 0x40)
	m.cpu.WriteWord(processor.SysRamTop, uint16(tape.StackTop))

	// A .P image dumps LAST_K and CDFLAG itself; leave them alone.
	if img.Raw {
		m.cpu.WriteWord(processor.SysLastK, keyboard.KeyNone)
		m.cpu.WriteByte(processor.SysCDFlag, 0x40)
	}
}

// RunFrame executes roughly one frame worth of cycles. A HALT left
// pending at the end of the previous frame is serviced before the
// first step so queued keys are never lost across frame boundaries.
func (m *Machine) RunFrame(budget int) (int, error) {
	var cycles int
	for cycles < budget {
		if m.cpu.Halted() {
			if err := m.cpu.Service(); err != nil {
				return cycles, err
			}
		}
		c, err := m.cpu.Step()
		cycles += c
		if err != nil && err != processor.ErrCPUHalt {
			return cycles, err
		}
	}
	return cycles, nil
}

// RunUntilIdle drives the machine until the guest settles into its
// keyboard polling loop with no input pending.
func (m *Machine) RunUntilIdle(budget int) error {
	idle := 0
	for cycles := 0; cycles < budget; {
		if m.cpu.Halted() {
			if m.keys.Pending() == 0 {
				if idle++; idle > idleHalts {
					return nil
				}
			} else {
				idle = 0
			}
			if err := m.cpu.Service(); err != nil {
				return err
			}
		}
		c, err := m.cpu.Step()
		cycles += c
		if err != nil && err != processor.ErrCPUHalt {
			return err
		}
	}
	return errors.New("cycle budget exhausted before the guest went idle")
}

// RunInteractive paces the machine at frame rate and mirrors the
// display file to the terminal until the user quits.
func (m *Machine) RunInteractive(term *display.Terminal) error {
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-term.QuitRequested():
			return nil
		case <-ticker.C:
			if _, err := m.RunFrame(FrameCycles); err != nil {
				return err
			}
			term.Render(m.Snapshot())
		}
	}
}

// Call runs a guest subroutine to completion, for poking at the
// program from the host side.
func (m *Machine) Call(addr memory.Pointer, budget int) error {
	regs := m.cpu.GetRegisters()
	regs.SP -= 2
	m.cpu.WriteWord(memory.Pointer(regs.SP), 0) // sentinel return address
	regs.PC = uint16(addr)

	for i := 0; i < budget; i++ {
		if regs.PC == 0 {
			return nil
		}
		if m.cpu.Halted() {
			if err := m.cpu.Service(); err != nil {
				return err
			}
		}
		if _, err := m.cpu.Step(); err != nil && err != processor.ErrCPUHalt {
			return err
		}
	}
	return errors.New("subroutine did not return")
}
