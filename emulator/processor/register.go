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

package processor

const (
	Carry     Flags = 0x01
	Subtract  Flags = 0x02
	Parity    Flags = 0x04 // Also overflow.
	HalfCarry Flags = 0x10
	Zero      Flags = 0x40
	Sign      Flags = 0x80
)

const AllFlags = Carry | Subtract | Parity | HalfCarry | Zero | Sign

// Flags is the Z80 F register. Bits 3 and 5 are undocumented and
// always read back as zero here.
type Flags byte

func (r *Flags) Get(f Flags) Flags {
	return *r & f
}

func (r *Flags) GetBool(f Flags) bool {
	return r.Get(f) != 0
}

func (r *Flags) Set(f Flags) {
	*r |= f
}

func (r *Flags) SetBool(f Flags, b bool) {
	if b {
		r.Set(f)
		return
	}
	r.Clear(f)
}

func (r *Flags) Clear(f Flags) {
	*r &= ^f
}

func (r *Flags) Store(f byte) {
	*r = Flags(f) & AllFlags
}

func (r *Flags) Load() byte {
	return byte(*r & AllFlags)
}

type Registers struct {
	A          byte
	bc, de, hl uint16

	Flags

	IX, IY uint16
	SP, PC uint16
	Debug  bool
}

func (r *Registers) Reset() {
	*r = Registers{}
}

func (r *Registers) B() byte {
	return byte(r.bc >> 8)
}

func (r *Registers) C() byte {
	return byte(r.bc & 0xFF)
}

func (r *Registers) BC() uint16 {
	return r.bc
}

func (r *Registers) SetB(v byte) {
	r.bc = r.bc&0xFF | uint16(v)<<8
}

func (r *Registers) SetC(v byte) {
	r.bc = r.bc&0xFF00 | uint16(v)
}

func (r *Registers) SetBC(v uint16) {
	r.bc = v
}

func (r *Registers) D() byte {
	return byte(r.de >> 8)
}

func (r *Registers) E() byte {
	return byte(r.de & 0xFF)
}

func (r *Registers) DE() uint16 {
	return r.de
}

func (r *Registers) SetD(v byte) {
	r.de = r.de&0xFF | uint16(v)<<8
}

func (r *Registers) SetE(v byte) {
	r.de = r.de&0xFF00 | uint16(v)
}

func (r *Registers) SetDE(v uint16) {
	r.de = v
}

func (r *Registers) H() byte {
	return byte(r.hl >> 8)
}

func (r *Registers) L() byte {
	return byte(r.hl & 0xFF)
}

func (r *Registers) HL() uint16 {
	return r.hl
}

func (r *Registers) SetH(v byte) {
	r.hl = r.hl&0xFF | uint16(v)<<8
}

func (r *Registers) SetL(v byte) {
	r.hl = r.hl&0xFF00 | uint16(v)
}

func (r *Registers) SetHL(v uint16) {
	r.hl = v
}

func (r *Registers) AF() uint16 {
	return uint16(r.A)<<8 | uint16(r.Flags.Load())
}

func (r *Registers) SetAF(v uint16) {
	r.A = byte(v >> 8)
	r.Flags.Store(byte(v))
}

// ExchangeDEHL implements EX DE,HL.
func (r *Registers) ExchangeDEHL() {
	r.de, r.hl = r.hl, r.de
}

func (r *Registers) GetValues() [6]uint16 {
	return [6]uint16{
		r.AF(), r.BC(), r.DE(),
		r.HL(), r.IX, r.IY,
	}
}
