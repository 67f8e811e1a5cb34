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

package cpu

import (
	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/processor"
)

func (p *CPU) sbc16(a, b uint16) uint16 {
	c := uint32(b2ui16(p.GetBool(processor.Carry)))
	res := uint32(a) - uint32(b) - c
	r := uint16(res)
	p.SetBool(processor.Carry, res > 0xFFFF)
	p.SetBool(processor.HalfCarry, uint32(a&0xFFF)-uint32(b&0xFFF)-c > 0xFFF)
	p.SetBool(processor.Parity, (a^b)&(a^r)&0x8000 != 0)
	p.Set(processor.Subtract)
	p.SetBool(processor.Sign, r&0x8000 != 0)
	p.SetBool(processor.Zero, r == 0)
	return r
}

func (p *CPU) adc16(a, b uint16) uint16 {
	c := uint32(b2ui16(p.GetBool(processor.Carry)))
	res := uint32(a) + uint32(b) + c
	r := uint16(res)
	p.SetBool(processor.Carry, res > 0xFFFF)
	p.SetBool(processor.HalfCarry, uint32(a&0xFFF)+uint32(b&0xFFF)+c > 0xFFF)
	p.SetBool(processor.Parity, (a^r)&(b^r)&0x8000 != 0)
	p.Clear(processor.Subtract)
	p.SetBool(processor.Sign, r&0x8000 != 0)
	p.SetBool(processor.Zero, r == 0)
	return r
}

// blockTransfer moves one byte from (HL) to (DE) and steps both
// pointers by dir. P/V reports whether BC is still nonzero.
func (p *CPU) blockTransfer(dir uint16) {
	p.WriteByte(memory.Pointer(p.DE()), p.ReadByte(memory.Pointer(p.HL())))
	p.SetHL(p.HL() + dir)
	p.SetDE(p.DE() + dir)
	p.SetBC(p.BC() - 1)
	p.Clear(processor.HalfCarry | processor.Subtract)
	p.SetBool(processor.Parity, p.BC() != 0)
}

func (p *CPU) executeExtended() error {
	op := p.readOpcodeStream()
	p.opcode = op
	p.cycleCount += 4

	switch op & 0xCF {
	case 0x42: // SBC HL,rr
		p.SetHL(p.sbc16(p.HL(), p.readPair(op>>4)))
		p.cycleCount += 7
		return nil
	case 0x43: // LD (nn),rr
		p.WriteWord(memory.Pointer(p.readOpcodeImm16()), p.readPair(op>>4))
		p.cycleCount += 12
		return nil
	case 0x4A: // ADC HL,rr
		p.SetHL(p.adc16(p.HL(), p.readPair(op>>4)))
		p.cycleCount += 7
		return nil
	case 0x4B: // LD rr,(nn)
		p.writePair(op>>4, p.ReadWord(memory.Pointer(p.readOpcodeImm16())))
		p.cycleCount += 12
		return nil
	}

	switch op {
	case 0x44: // NEG
		p.A = p.sub8(0, p.A, false)
		return nil
	case 0xA0: // LDI
		p.blockTransfer(1)
		p.cycleCount += 8
		return nil
	case 0xA8: // LDD
		p.blockTransfer(0xFFFF)
		p.cycleCount += 8
		return nil
	case 0xB0: // LDIR
		// The repeat runs to completion within one step. The guest
		// cannot observe intermediate state anyway since interrupts
		// are never delivered mid-instruction here.
		for {
			p.blockTransfer(1)
			p.cycleCount += 21
			if p.BC() == 0 {
				break
			}
		}
		return nil
	case 0xB8: // LDDR
		for {
			p.blockTransfer(0xFFFF)
			p.cycleCount += 21
			if p.BC() == 0 {
				break
			}
		}
		return nil
	default:
		return p.invalidOpcode(0xED)
	}
}
