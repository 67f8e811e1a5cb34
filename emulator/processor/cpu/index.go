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
)

// indexedAddr computes ix+d with the displacement taken from the
// opcode stream.
func (p *CPU) indexedAddr(reg uint16) memory.Pointer {
	return memory.Pointer(reg + p.readOpcodeDisp())
}

// executeIndex handles the DD and FD prefixes. The two differ only in
// which index register they operate on, so both land here. Only the
// documented forms that actually touch (ix+d) or the index register
// are decoded; the half-register forms are rejected.
func (p *CPU) executeIndex(prefix byte, reg *uint16) error {
	op := p.readOpcodeStream()
	p.opcode = op
	p.cycleCount += 4

	switch {
	case op>>6 == 1 && op != 0x76: // LD r,(ix+d) and LD (ix+d),r
		dst, src := (op>>3)&7, op&7
		switch {
		case src == 6 && dst != 6:
			p.writeReg8(dst, p.ReadByte(p.indexedAddr(*reg)))
			p.cycleCount += 11
			return nil
		case dst == 6 && src != 6:
			p.WriteByte(p.indexedAddr(*reg), p.readReg8(src))
			p.cycleCount += 11
			return nil
		default:
			return p.invalidOpcode(prefix)
		}
	case op>>6 == 2 && op&7 == 6: // ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,(ix+d)
		p.alu(op>>3, p.ReadByte(p.indexedAddr(*reg)))
		p.cycleCount += 11
		return nil
	}

	switch op & 0xCF {
	case 0x09: // ADD ix,rr
		if (op>>4)&3 == 2 {
			*reg = p.add16(*reg, *reg)
		} else {
			*reg = p.add16(*reg, p.readPair(op>>4))
		}
		p.cycleCount += 7
		return nil
	}

	switch op {
	case 0x21: // LD ix,nn
		*reg = p.readOpcodeImm16()
		p.cycleCount += 6
		return nil
	case 0x22: // LD (nn),ix
		p.WriteWord(memory.Pointer(p.readOpcodeImm16()), *reg)
		p.cycleCount += 12
		return nil
	case 0x23: // INC ix
		*reg++
		return nil
	case 0x2A: // LD ix,(nn)
		*reg = p.ReadWord(memory.Pointer(p.readOpcodeImm16()))
		p.cycleCount += 12
		return nil
	case 0x2B: // DEC ix
		*reg--
		return nil
	case 0x34: // INC (ix+d)
		addr := p.indexedAddr(*reg)
		p.WriteByte(addr, p.inc8(p.ReadByte(addr)))
		p.cycleCount += 15
		return nil
	case 0x35: // DEC (ix+d)
		addr := p.indexedAddr(*reg)
		p.WriteByte(addr, p.dec8(p.ReadByte(addr)))
		p.cycleCount += 15
		return nil
	case 0x36: // LD (ix+d),n
		addr := p.indexedAddr(*reg)
		p.WriteByte(addr, p.readOpcodeStream())
		p.cycleCount += 11
		return nil
	case 0xCB:
		return p.executeIndexBits(prefix, p.indexedAddr(*reg))
	case 0xE1: // POP ix
		*reg = p.pop16()
		p.cycleCount += 6
		return nil
	case 0xE3: // EX (SP),ix
		v := p.ReadWord(memory.Pointer(p.SP))
		p.WriteWord(memory.Pointer(p.SP), *reg)
		*reg = v
		p.cycleCount += 15
		return nil
	case 0xE5: // PUSH ix
		p.push16(*reg)
		p.cycleCount += 7
		return nil
	case 0xE9: // JP (ix)
		p.PC = *reg
		return nil
	case 0xF9: // LD SP,ix
		p.SP = *reg
		return nil
	default:
		return p.invalidOpcode(prefix)
	}
}
