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
	"log"

	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/processor"
)

type instructionState struct {
	opcode     byte
	decodeAt   uint16
	cycleCount int
}

func (p *CPU) readOpcodeStream() byte {
	v := p.ReadByte(memory.Pointer(p.PC))
	p.PC++
	return v
}

func (p *CPU) readOpcodeImm16() uint16 {
	v := p.ReadWord(memory.Pointer(p.PC))
	p.PC += 2
	return v
}

// readOpcodeDisp reads a signed displacement from the opcode stream.
func (p *CPU) readOpcodeDisp() uint16 {
	return uint16(int16(int8(p.readOpcodeStream())))
}

func (p *CPU) push16(v uint16) {
	p.SP -= 2
	p.WriteWord(memory.Pointer(p.SP), v)
}

func (p *CPU) pop16() uint16 {
	v := p.ReadWord(memory.Pointer(p.SP))
	p.SP += 2
	return v
}

func b2ui16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

func (p *CPU) updateFlagsSZP(res byte) {
	p.SetBool(processor.Sign, res&0x80 != 0)
	p.SetBool(processor.Zero, res == 0)
	p.SetBool(processor.Parity, parityLookup[res])
}

func (p *CPU) add8(a, b byte, carry bool) byte {
	c := b2ui16(carry)
	res := uint16(a) + uint16(b) + c
	r := byte(res)
	p.SetBool(processor.Carry, res > 0xFF)
	p.SetBool(processor.HalfCarry, (a&0xF)+(b&0xF)+byte(c) > 0xF)
	p.SetBool(processor.Parity, (a^r)&(b^r)&0x80 != 0)
	p.Clear(processor.Subtract)
	p.SetBool(processor.Sign, r&0x80 != 0)
	p.SetBool(processor.Zero, r == 0)
	return r
}

func (p *CPU) sub8(a, b byte, carry bool) byte {
	c := b2ui16(carry)
	res := uint16(a) - uint16(b) - c
	r := byte(res)
	p.SetBool(processor.Carry, res > 0xFF)
	p.SetBool(processor.HalfCarry, (a&0xF)-(b&0xF)-byte(c) > 0xF)
	p.SetBool(processor.Parity, (a^b)&(a^r)&0x80 != 0)
	p.Set(processor.Subtract)
	p.SetBool(processor.Sign, r&0x80 != 0)
	p.SetBool(processor.Zero, r == 0)
	return r
}

func (p *CPU) logicFlags(res byte, halfCarry bool) {
	p.Clear(processor.Carry | processor.Subtract)
	p.SetBool(processor.HalfCarry, halfCarry)
	p.updateFlagsSZP(res)
}

// inc8 and dec8 never touch carry. Overflow is only set on the
// 0x7F/0x80 boundary.
func (p *CPU) inc8(v byte) byte {
	r := v + 1
	p.SetBool(processor.HalfCarry, v&0xF == 0xF)
	p.SetBool(processor.Parity, v == 0x7F)
	p.Clear(processor.Subtract)
	p.SetBool(processor.Sign, r&0x80 != 0)
	p.SetBool(processor.Zero, r == 0)
	return r
}

func (p *CPU) dec8(v byte) byte {
	r := v - 1
	p.SetBool(processor.HalfCarry, v&0xF == 0)
	p.SetBool(processor.Parity, v == 0x80)
	p.Set(processor.Subtract)
	p.SetBool(processor.Sign, r&0x80 != 0)
	p.SetBool(processor.Zero, r == 0)
	return r
}

func (p *CPU) add16(a, b uint16) uint16 {
	res := uint32(a) + uint32(b)
	p.SetBool(processor.Carry, res > 0xFFFF)
	p.SetBool(processor.HalfCarry, (a&0xFFF)+(b&0xFFF) > 0xFFF)
	p.Clear(processor.Subtract)
	return uint16(res)
}

func (p *CPU) alu(op, v byte) {
	switch op & 7 {
	case 0: // ADD
		p.A = p.add8(p.A, v, false)
	case 1: // ADC
		p.A = p.add8(p.A, v, p.GetBool(processor.Carry))
	case 2: // SUB
		p.A = p.sub8(p.A, v, false)
	case 3: // SBC
		p.A = p.sub8(p.A, v, p.GetBool(processor.Carry))
	case 4: // AND
		p.A &= v
		p.logicFlags(p.A, true)
	case 5: // XOR
		p.A ^= v
		p.logicFlags(p.A, false)
	case 6: // OR
		p.A |= v
		p.logicFlags(p.A, false)
	case 7: // CP
		p.sub8(p.A, v, false)
	}
}

// Register index 6 is the (HL) memory operand.
func (p *CPU) readReg8(idx byte) byte {
	switch idx & 7 {
	case 0:
		return p.B()
	case 1:
		return p.C()
	case 2:
		return p.D()
	case 3:
		return p.E()
	case 4:
		return p.H()
	case 5:
		return p.L()
	case 6:
		return p.ReadByte(memory.Pointer(p.HL()))
	default:
		return p.A
	}
}

func (p *CPU) writeReg8(idx, v byte) {
	switch idx & 7 {
	case 0:
		p.SetB(v)
	case 1:
		p.SetC(v)
	case 2:
		p.SetD(v)
	case 3:
		p.SetE(v)
	case 4:
		p.SetH(v)
	case 5:
		p.SetL(v)
	case 6:
		p.WriteByte(memory.Pointer(p.HL()), v)
	default:
		p.A = v
	}
}

func (p *CPU) readPair(idx byte) uint16 {
	switch idx & 3 {
	case 0:
		return p.BC()
	case 1:
		return p.DE()
	case 2:
		return p.HL()
	default:
		return p.SP
	}
}

func (p *CPU) writePair(idx byte, v uint16) {
	switch idx & 3 {
	case 0:
		p.SetBC(v)
	case 1:
		p.SetDE(v)
	case 2:
		p.SetHL(v)
	default:
		p.SP = v
	}
}

// PUSH and POP use AF in place of SP.
func (p *CPU) readPairAF(idx byte) uint16 {
	if idx&3 == 3 {
		return p.AF()
	}
	return p.readPair(idx)
}

func (p *CPU) writePairAF(idx byte, v uint16) {
	if idx&3 == 3 {
		p.SetAF(v)
		return
	}
	p.writePair(idx, v)
}

func (p *CPU) condition(idx byte) bool {
	switch idx & 7 {
	case 0: // NZ
		return !p.GetBool(processor.Zero)
	case 1: // Z
		return p.GetBool(processor.Zero)
	case 2: // NC
		return !p.GetBool(processor.Carry)
	case 3: // C
		return p.GetBool(processor.Carry)
	case 4: // PO
		return !p.GetBool(processor.Parity)
	case 5: // PE
		return p.GetBool(processor.Parity)
	case 6: // P
		return !p.GetBool(processor.Sign)
	default: // M
		return p.GetBool(processor.Sign)
	}
}

func (p *CPU) invalidOpcode(prefix byte) error {
	err := &processor.UnimplementedOpcodeError{Prefix: prefix, Opcode: p.opcode, Addr: memory.Pointer(p.decodeAt)}
	log.Print(err)
	return err
}

func (p *CPU) Step() (int, error) {
	p.cycleCount = 0

	if p.halted {
		return 0, processor.ErrHaltNotServiced
	}

	if memory.Pointer(p.PC) < ROMTop {
		if err := p.dispatchTrap(); err != nil {
			return p.cycleCount, err
		}
	} else {
		p.stats.NumInstructions++
		p.decodeAt = p.PC
		p.opcode = p.readOpcodeStream()

		if err := p.execute(); err != nil {
			return p.cycleCount, err
		}
	}

	for _, d := range p.peripherals {
		if err := d.Step(p.cycleCount); err != nil {
			return p.cycleCount, err
		}
	}
	return p.cycleCount, nil
}

// dispatchTrap runs the host handler registered for a ROM address and
// returns to the caller. Calls into ROM routines we do not emulate
// fall through to a plain return, logged once per address.
func (p *CPU) dispatchTrap() error {
	addr := memory.Pointer(p.PC)
	p.cycleCount += 17

	if handler, ok := p.traps[addr]; ok {
		if err := handler.HandleTrap(addr); err != nil {
			return err
		}
	} else if !p.untrapped[addr] {
		p.untrapped[addr] = true
		log.Printf("call to untrapped ROM routine at %v", addr)
	}

	p.PC = p.pop16()
	return nil
}

func (p *CPU) execute() error {
	// Timing is very coarse. Four cycles per instruction with a few
	// exceptions is close enough for frame scheduling.
	p.cycleCount += 4

	op := p.opcode

	// HALT sits in the middle of the LD r,r' block.
	if op == 0x76 { // HALT
		p.halted = true
		p.stats.NumHalts++
		return processor.ErrCPUHalt
	}

	switch {
	case op>>6 == 1: // LD r,r'
		p.writeReg8(op>>3, p.readReg8(op))
		return nil
	case op>>6 == 2: // ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,r
		p.alu(op>>3, p.readReg8(op))
		return nil
	}

	switch op & 0xCF {
	case 0x01: // LD rr,nn
		p.writePair(op>>4, p.readOpcodeImm16())
		return nil
	case 0x03: // INC rr
		p.writePair(op>>4, p.readPair(op>>4)+1)
		return nil
	case 0x09: // ADD HL,rr
		p.SetHL(p.add16(p.HL(), p.readPair(op>>4)))
		return nil
	case 0x0B: // DEC rr
		p.writePair(op>>4, p.readPair(op>>4)-1)
		return nil
	}

	switch op & 0xC7 {
	case 0x04: // INC r
		p.writeReg8(op>>3, p.inc8(p.readReg8(op>>3)))
		return nil
	case 0x05: // DEC r
		p.writeReg8(op>>3, p.dec8(p.readReg8(op>>3)))
		return nil
	case 0x06: // LD r,n
		p.writeReg8(op>>3, p.readOpcodeStream())
		return nil
	case 0xC0: // RET cc
		if p.condition(op >> 3) {
			p.PC = p.pop16()
			p.cycleCount += 6
		}
		return nil
	case 0xC2: // JP cc,nn
		addr := p.readOpcodeImm16()
		if p.condition(op >> 3) {
			p.PC = addr
		}
		return nil
	case 0xC4: // CALL cc,nn
		addr := p.readOpcodeImm16()
		if p.condition(op >> 3) {
			p.push16(p.PC)
			p.PC = addr
			p.cycleCount += 7
		}
		return nil
	case 0xC7: // RST
		p.push16(p.PC)
		p.PC = uint16(op & 0x38)
		return nil
	}

	switch op & 0xCF {
	case 0xC1: // POP rr
		p.writePairAF(op>>4, p.pop16())
		return nil
	case 0xC5: // PUSH rr
		p.push16(p.readPairAF(op >> 4))
		p.cycleCount += 7
		return nil
	}

	switch op {
	case 0x00: // NOP
		return nil
	case 0x02: // LD (BC),A
		p.WriteByte(memory.Pointer(p.BC()), p.A)
		return nil
	case 0x07: // RLCA
		c := p.A >> 7
		p.A = p.A<<1 | c
		p.SetBool(processor.Carry, c != 0)
		p.Clear(processor.HalfCarry | processor.Subtract)
		return nil
	case 0x0A: // LD A,(BC)
		p.A = p.ReadByte(memory.Pointer(p.BC()))
		return nil
	case 0x0F: // RRCA
		c := p.A & 1
		p.A = p.A>>1 | c<<7
		p.SetBool(processor.Carry, c != 0)
		p.Clear(processor.HalfCarry | processor.Subtract)
		return nil
	case 0x10: // DJNZ d
		d := p.readOpcodeDisp()
		b := p.B() - 1
		p.SetB(b)
		if b != 0 {
			p.PC += d
			p.cycleCount += 5
		}
		return nil
	case 0x12: // LD (DE),A
		p.WriteByte(memory.Pointer(p.DE()), p.A)
		return nil
	case 0x17: // RLA
		c := b2ui16(p.GetBool(processor.Carry))
		p.SetBool(processor.Carry, p.A&0x80 != 0)
		p.A = p.A<<1 | byte(c)
		p.Clear(processor.HalfCarry | processor.Subtract)
		return nil
	case 0x18: // JR d
		p.PC += p.readOpcodeDisp()
		p.cycleCount += 5
		return nil
	case 0x1A: // LD A,(DE)
		p.A = p.ReadByte(memory.Pointer(p.DE()))
		return nil
	case 0x1F: // RRA
		c := b2ui16(p.GetBool(processor.Carry))
		p.SetBool(processor.Carry, p.A&1 != 0)
		p.A = p.A>>1 | byte(c)<<7
		p.Clear(processor.HalfCarry | processor.Subtract)
		return nil
	case 0x20, 0x28, 0x30, 0x38: // JR cc,d
		d := p.readOpcodeDisp()
		if p.condition((op >> 3) & 3) {
			p.PC += d
			p.cycleCount += 5
		}
		return nil
	case 0x22: // LD (nn),HL
		p.WriteWord(memory.Pointer(p.readOpcodeImm16()), p.HL())
		return nil
	case 0x2A: // LD HL,(nn)
		p.SetHL(p.ReadWord(memory.Pointer(p.readOpcodeImm16())))
		return nil
	case 0x2F: // CPL
		p.A = ^p.A
		p.Set(processor.HalfCarry | processor.Subtract)
		return nil
	case 0x32: // LD (nn),A
		p.WriteByte(memory.Pointer(p.readOpcodeImm16()), p.A)
		return nil
	case 0x37: // SCF
		p.Set(processor.Carry)
		p.Clear(processor.HalfCarry | processor.Subtract)
		return nil
	case 0x3A: // LD A,(nn)
		p.A = p.ReadByte(memory.Pointer(p.readOpcodeImm16()))
		return nil
	case 0x3F: // CCF
		c := p.GetBool(processor.Carry)
		p.SetBool(processor.HalfCarry, c)
		p.SetBool(processor.Carry, !c)
		p.Clear(processor.Subtract)
		return nil
	case 0xC3: // JP nn
		p.PC = p.readOpcodeImm16()
		return nil
	case 0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE: // ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,n
		p.alu(op>>3, p.readOpcodeStream())
		return nil
	case 0xC9: // RET
		p.PC = p.pop16()
		p.cycleCount += 6
		return nil
	case 0xCB:
		return p.executeBits()
	case 0xCD: // CALL nn
		addr := p.readOpcodeImm16()
		p.push16(p.PC)
		p.PC = addr
		p.cycleCount += 13
		return nil
	case 0xDD:
		return p.executeIndex(op, &p.IX)
	case 0xE3: // EX (SP),HL
		v := p.ReadWord(memory.Pointer(p.SP))
		p.WriteWord(memory.Pointer(p.SP), p.HL())
		p.SetHL(v)
		p.cycleCount += 15
		return nil
	case 0xE9: // JP (HL)
		p.PC = p.HL()
		return nil
	case 0xEB: // EX DE,HL
		p.ExchangeDEHL()
		return nil
	case 0xED:
		return p.executeExtended()
	case 0xF9: // LD SP,HL
		p.SP = p.HL()
		return nil
	case 0xFD:
		return p.executeIndex(op, &p.IY)
	default:
		// DAA, EXX, EX AF,AF', DI/EI and port IO are outside the
		// subset the guest uses. Hitting one means a bad image.
		return p.invalidOpcode(0)
	}
}
