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

// rotate8 implements the CB rotate and shift group. Unlike the
// accumulator forms, all of these load S, Z and P from the result.
func (p *CPU) rotate8(op, v byte) (byte, error) {
	var res byte
	var carry bool

	switch (op >> 3) & 7 {
	case 0: // RLC
		carry = v&0x80 != 0
		res = v<<1 | v>>7
	case 1: // RRC
		carry = v&1 != 0
		res = v>>1 | v<<7
	case 2: // RL
		carry = v&0x80 != 0
		res = v<<1 | byte(b2ui16(p.GetBool(processor.Carry)))
	case 3: // RR
		carry = v&1 != 0
		res = v>>1 | byte(b2ui16(p.GetBool(processor.Carry)))<<7
	case 4: // SLA
		carry = v&0x80 != 0
		res = v << 1
	case 5: // SRA
		carry = v&1 != 0
		res = v>>1 | v&0x80
	case 6: // SLL
		return 0, p.invalidOpcode(0xCB)
	default: // SRL
		carry = v&1 != 0
		res = v >> 1
	}

	p.SetBool(processor.Carry, carry)
	p.Clear(processor.HalfCarry | processor.Subtract)
	p.updateFlagsSZP(res)
	return res, nil
}

func (p *CPU) bit8(bit, v byte) {
	set := v&(1<<bit) != 0
	p.SetBool(processor.Zero, !set)
	p.SetBool(processor.Parity, !set)
	p.SetBool(processor.Sign, bit == 7 && set)
	p.Set(processor.HalfCarry)
	p.Clear(processor.Subtract)
}

func (p *CPU) executeBits() error {
	op := p.readOpcodeStream()
	p.opcode = op
	p.cycleCount += 4

	idx := op & 7
	bit := (op >> 3) & 7

	switch op >> 6 {
	case 0: // RLC/RRC/RL/RR/SLA/SRA/SRL r
		res, err := p.rotate8(op, p.readReg8(idx))
		if err != nil {
			return err
		}
		p.writeReg8(idx, res)
	case 1: // BIT b,r
		p.bit8(bit, p.readReg8(idx))
	case 2: // RES b,r
		p.writeReg8(idx, p.readReg8(idx)&^(1<<bit))
	default: // SET b,r
		p.writeReg8(idx, p.readReg8(idx)|1<<bit)
	}
	return nil
}

// executeIndexBits handles DDCB and FDCB. The displacement comes
// before the final opcode byte and only the memory forms exist.
func (p *CPU) executeIndexBits(prefix byte, addr memory.Pointer) error {
	op := p.readOpcodeStream()
	p.opcode = op
	p.cycleCount += 12

	if op&7 != 6 {
		return p.invalidOpcode(prefix)
	}
	bit := (op >> 3) & 7

	switch op >> 6 {
	case 0:
		res, err := p.rotate8(op, p.ReadByte(addr))
		if err != nil {
			return err
		}
		p.WriteByte(addr, res)
	case 1: // BIT b,(ix+d)
		p.bit8(bit, p.ReadByte(addr))
	case 2: // RES b,(ix+d)
		p.WriteByte(addr, p.ReadByte(addr)&^(1<<bit))
	default: // SET b,(ix+d)
		p.WriteByte(addr, p.ReadByte(addr)|1<<bit)
	}
	return nil
}
