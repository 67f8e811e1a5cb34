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

package cpu

import (
	"errors"
	"log"

	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/peripheral"
	"github.com/Cronan/zx81-chess/emulator/processor"
)

const MaxPeripherals = 32

// ROMTop is the first address above the ZX81 ROM. Control transfers
// below this address are routed to the trap layer instead of being
// executed, since no ROM image is mapped.
const ROMTop memory.Pointer = 0x2000

type CPU struct {
	processor.Registers
	instructionState

	halted bool

	stats       processor.Stats
	peripherals []peripheral.Peripheral
	keys        processor.KeyLatch

	traps     map[memory.Pointer]processor.TrapHandler
	untrapped map[memory.Pointer]bool

	mmap           [0x10000]byte
	memPeripherals [MaxPeripherals]memory.Memory
}

func NewCPU(peripherals []peripheral.Peripheral) *CPU {
	p := &CPU{
		peripherals: peripherals,
		traps:       make(map[memory.Pointer]processor.TrapHandler),
		untrapped:   make(map[memory.Pointer]bool),
	}

	dummyMem := &memory.DummyMemory{}
	for i := range p.memPeripherals[:] {
		p.memPeripherals[i] = dummyMem
	}

	for i := 1; i <= len(peripherals); i++ {
		if dev, ok := peripherals[i-1].(memory.Memory); ok {
			p.memPeripherals[i] = dev
		}
	}

	p.installPeripherals()
	return p
}

func (p *CPU) installPeripherals() {
	for _, d := range p.peripherals {
		if err := d.Install(p); err != nil {
			log.Print("Failed to install peripheral: ", err)
		}
		if keys, ok := d.(processor.KeyLatch); ok {
			p.keys = keys
		}
	}
	if p.keys == nil {
		log.Print("No key latch detected!")
	}
}

func (p *CPU) Close() {
	for _, d := range p.peripherals {
		if cd, b := d.(peripheral.PeripheralCloser); b {
			if err := cd.Close(); err != nil {
				log.Print("Failed to close peripheral: ", err)
			}
		}
	}
}

func (p *CPU) GetStats() processor.Stats {
	s := p.stats
	p.stats = processor.Stats{}
	return s
}

// Reset puts the CPU at origin with the stack at stackTop and resets
// all peripherals. Memory content is left to the RAM device.
func (p *CPU) Reset(origin, stackTop memory.Pointer) {
	log.Print("CPU reset!")

	p.Registers = processor.Registers{PC: uint16(origin), SP: uint16(stackTop)}
	p.halted = false
	for _, d := range p.peripherals {
		d.Reset()
	}
}

func (p *CPU) Halted() bool {
	return p.halted
}

// Service completes a HALT. The pending key, or the no-key sentinel,
// is latched into LAST_K and execution resumes at the instruction
// after the HALT. Calling Service on a running CPU is a host bug.
func (p *CPU) Service() error {
	if !p.halted {
		return processor.ErrNotHalted
	}
	if p.keys == nil {
		log.Print("No key latch; HALT serviced without input!")
	} else {
		p.keys.Deliver()
	}
	p.halted = false
	return nil
}

func (p *CPU) GetMappedMemoryDevice(addr memory.Pointer) memory.Memory {
	return p.memPeripherals[p.mmap[addr]]
}

func (p *CPU) GetRegisters() *processor.Registers {
	return &p.Registers
}

func (p *CPU) ReadByte(addr memory.Pointer) byte {
	p.stats.RX++
	return p.GetMappedMemoryDevice(addr).ReadByte(addr)
}

func (p *CPU) WriteByte(addr memory.Pointer, data byte) {
	p.stats.TX++
	p.GetMappedMemoryDevice(addr).WriteByte(addr, data)
}

func (p *CPU) ReadWord(addr memory.Pointer) uint16 {
	return uint16(p.ReadByte(addr)) | (uint16(p.ReadByte(addr+1)) << 8)
}

func (p *CPU) WriteWord(addr memory.Pointer, data uint16) {
	p.WriteByte(addr, byte(data&0xFF))
	p.WriteByte(addr+1, byte(data>>8))
}

func (p *CPU) InstallTrapHandler(addr memory.Pointer, handler processor.TrapHandler) error {
	if addr >= ROMTop {
		return errors.New("trap address outside ROM area")
	}
	p.traps[addr] = handler
	return nil
}

func (p *CPU) InstallMemoryDevice(device memory.Memory, from, to memory.Pointer) error {
	for i, d := range p.memPeripherals[:] {
		if d == device {
			for a := int(from); a <= int(to); a++ {
				p.mmap[a] = byte(i)
			}
			return nil
		}
	}
	return errors.New("could not find peripheral")
}

func (p *CPU) InstallMemoryDeviceAt(device memory.Memory, addr ...memory.Pointer) error {
	for _, a := range addr {
		if err := p.InstallMemoryDevice(device, a, a); err != nil {
			return err
		}
	}
	return nil
}
