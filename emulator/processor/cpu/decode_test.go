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
	"errors"
	"testing"

	"github.com/Cronan/zx81-chess/emulator/memory"
	"github.com/Cronan/zx81-chess/emulator/peripheral"
	"github.com/Cronan/zx81-chess/emulator/peripheral/ram"
	"github.com/Cronan/zx81-chess/emulator/processor"
)

const (
	testOrigin   = 0x4082
	testStackTop = 0x43FF
)

func newTestCPU(code []byte) *CPU {
	p := NewCPU([]peripheral.Peripheral{
		&ram.Device{Clear: true},
	})
	for i, b := range code {
		p.WriteByte(testOrigin+memory.Pointer(i), b)
	}
	p.Reset(testOrigin, testStackTop)
	return p
}

func stepUntilHalt(t *testing.T, p *CPU) int {
	t.Helper()
	for n := 1; n <= 100000; n++ {
		if _, err := p.Step(); err != nil {
			if err != processor.ErrCPUHalt {
				t.Fatal(err)
			}
			return n
		}
	}
	t.Fatal("program never halted")
	return 0
}

func runProgram(t *testing.T, code []byte) *CPU {
	t.Helper()
	p := newTestCPU(code)
	stepUntilHalt(t, p)
	return p
}

func TestLoadAndHalt(t *testing.T) {
	p := newTestCPU([]byte{
		0x3E, 0x2A, // LD A,42
		0x76, // HALT
	})
	if n := stepUntilHalt(t, p); n != 2 {
		t.Errorf("expected 2 steps, got %d", n)
	}
	if p.A != 42 {
		t.Errorf("A = %d, expected 42", p.A)
	}
	if !p.Halted() {
		t.Error("CPU should be halted")
	}
}

func TestSubBorrow(t *testing.T) {
	p := runProgram(t, []byte{
		0x3E, 0x00, // LD A,0
		0xD6, 0x01, // SUB 1
		0x76, // HALT
	})
	if p.A != 0xFF {
		t.Errorf("A = 0x%02X, expected 0xFF", p.A)
	}
	if !p.GetBool(processor.Carry) {
		t.Error("carry should be set on borrow")
	}
	if p.GetBool(processor.Zero) {
		t.Error("zero should be clear")
	}
	if !p.GetBool(processor.Subtract) {
		t.Error("subtract should be set")
	}
	if !p.GetBool(processor.Sign) {
		t.Error("sign should be set")
	}
	if p.GetBool(processor.Parity) {
		t.Error("overflow should be clear")
	}
}

func TestBitTest(t *testing.T) {
	p := runProgram(t, []byte{
		0x3E, 0x08, // LD A,0x08
		0xCB, 0x5F, // BIT 3,A
		0x76, // HALT
	})
	if p.GetBool(processor.Zero) {
		t.Error("zero should be clear when the tested bit is set")
	}
	if !p.GetBool(processor.HalfCarry) {
		t.Error("half carry should be set by BIT")
	}

	p = runProgram(t, []byte{
		0x3E, 0x00, // LD A,0
		0xCB, 0x5F, // BIT 3,A
		0x76, // HALT
	})
	if !p.GetBool(processor.Zero) {
		t.Error("zero should be set when the tested bit is clear")
	}
}

func TestDJNZLoop(t *testing.T) {
	p := runProgram(t, []byte{
		0x06, 0x05, // LD B,5
		0x3E, 0x00, // LD A,0
		0x3C,       // INC A
		0x10, 0xFD, // DJNZ -3
		0x76, // HALT
	})
	if p.A != 5 {
		t.Errorf("loop body ran %d times, expected 5", p.A)
	}
	if p.B() != 0 {
		t.Errorf("B = %d, expected 0", p.B())
	}
}

func TestAddWithCarry(t *testing.T) {
	// Carry in and carry out: 0xFF + 0x01 + 1 wraps to 0x01.
	p := runProgram(t, []byte{
		0x37,       // SCF
		0x3E, 0xFF, // LD A,0xFF
		0xCE, 0x01, // ADC A,0x01
		0x76, // HALT
	})
	if p.A != 0x01 {
		t.Errorf("A = 0x%02X, expected 0x01", p.A)
	}
	if !p.GetBool(processor.Carry) {
		t.Error("carry should be set when the unmasked sum exceeds 0xFF")
	}
	if p.GetBool(processor.Zero) {
		t.Error("zero should be clear")
	}

	// Register form, no carry in.
	p = runProgram(t, []byte{
		0x3E, 0x70, // LD A,0x70
		0x06, 0x70, // LD B,0x70
		0x88, // ADC A,B
		0x76, // HALT
	})
	if p.A != 0xE0 {
		t.Errorf("A = 0x%02X, expected 0xE0", p.A)
	}
	if p.GetBool(processor.Carry) {
		t.Error("carry should be clear when the sum fits a byte")
	}
	if !p.GetBool(processor.Parity) {
		t.Error("overflow should be set, two positives made a negative")
	}

	// Carry in alone can tip the sum over the signed boundary.
	p = runProgram(t, []byte{
		0x37,       // SCF
		0x3E, 0x7F, // LD A,0x7F
		0xCE, 0x00, // ADC A,0x00
		0x76, // HALT
	})
	if p.A != 0x80 {
		t.Errorf("A = 0x%02X, expected 0x80", p.A)
	}
	if p.GetBool(processor.Carry) {
		t.Error("carry should be clear")
	}
	if !p.GetBool(processor.Parity) {
		t.Error("overflow should be set at 0x7F to 0x80")
	}
	if !p.GetBool(processor.Sign) {
		t.Error("sign should be set")
	}
}

func TestIncDecLeaveCarry(t *testing.T) {
	p := runProgram(t, []byte{
		0x37,       // SCF
		0x3E, 0x7F, // LD A,0x7F
		0x3C, // INC A
		0x76, // HALT
	})
	if !p.GetBool(processor.Carry) {
		t.Error("INC must not touch carry")
	}
	if !p.GetBool(processor.Parity) {
		t.Error("overflow should be set on 0x7F wrap")
	}
	if !p.GetBool(processor.Sign) {
		t.Error("sign should be set")
	}

	p = runProgram(t, []byte{
		0x37,       // SCF
		0x3F,       // CCF
		0x3E, 0x80, // LD A,0x80
		0x3D, // DEC A
		0x76, // HALT
	})
	if p.GetBool(processor.Carry) {
		t.Error("DEC must not touch carry")
	}
	if !p.GetBool(processor.Parity) {
		t.Error("overflow should be set on 0x80 wrap")
	}
}

func TestLogicFlags(t *testing.T) {
	p := runProgram(t, []byte{
		0x37,       // SCF
		0x3E, 0x0F, // LD A,0x0F
		0xE6, 0x03, // AND 0x03
		0x76, // HALT
	})
	if p.A != 0x03 {
		t.Errorf("A = 0x%02X, expected 0x03", p.A)
	}
	if p.GetBool(processor.Carry) {
		t.Error("AND must clear carry")
	}
	if !p.GetBool(processor.HalfCarry) {
		t.Error("AND must set half carry")
	}
	if !p.GetBool(processor.Parity) {
		t.Error("parity of 0x03 is even")
	}

	p = runProgram(t, []byte{
		0x3E, 0x0F, // LD A,0x0F
		0xF6, 0xF0, // OR 0xF0
		0x76, // HALT
	})
	if p.A != 0xFF {
		t.Errorf("A = 0x%02X, expected 0xFF", p.A)
	}
	if p.GetBool(processor.HalfCarry) {
		t.Error("OR must clear half carry")
	}
}

func TestAccumulatorRotates(t *testing.T) {
	p := runProgram(t, []byte{
		0x3E, 0x81, // LD A,0x81
		0x07, // RLCA
		0x76, // HALT
	})
	if p.A != 0x03 {
		t.Errorf("A = 0x%02X, expected 0x03", p.A)
	}
	if !p.GetBool(processor.Carry) {
		t.Error("carry should hold the rotated out bit")
	}

	// The accumulator forms leave S, Z and P alone.
	p = runProgram(t, []byte{
		0xAF,       // XOR A
		0x3E, 0x81, // LD A,0x81
		0x0F, // RRCA
		0x76, // HALT
	})
	if p.A != 0xC0 {
		t.Errorf("A = 0x%02X, expected 0xC0", p.A)
	}
	if !p.GetBool(processor.Zero) {
		t.Error("RRCA must not change the zero flag")
	}
}

func TestShiftFlags(t *testing.T) {
	p := runProgram(t, []byte{
		0x3E, 0x80, // LD A,0x80
		0xCB, 0x3F, // SRL A
		0x76, // HALT
	})
	if p.A != 0x40 {
		t.Errorf("A = 0x%02X, expected 0x40", p.A)
	}
	if p.GetBool(processor.Carry) {
		t.Error("carry should be clear")
	}
	if p.GetBool(processor.Sign) {
		t.Error("SRL clears the top bit")
	}

	p = runProgram(t, []byte{
		0x3E, 0x81, // LD A,0x81
		0xCB, 0x2F, // SRA A
		0x76, // HALT
	})
	if p.A != 0xC0 {
		t.Errorf("A = 0x%02X, expected 0xC0", p.A)
	}
	if !p.GetBool(processor.Carry) {
		t.Error("carry should hold the shifted out bit")
	}
	if !p.GetBool(processor.Sign) {
		t.Error("SRA keeps the sign bit")
	}
}

func TestStackRoundTrip(t *testing.T) {
	p := runProgram(t, []byte{
		0x21, 0x34, 0x12, // LD HL,0x1234
		0xE5, // PUSH HL
		0xD1, // POP DE
		0x76, // HALT
	})
	if p.DE() != 0x1234 {
		t.Errorf("DE = 0x%04X, expected 0x1234", p.DE())
	}
	if p.SP != testStackTop {
		t.Errorf("SP = 0x%04X, expected 0x%04X", p.SP, testStackTop)
	}
}

func TestCallAndReturn(t *testing.T) {
	p := runProgram(t, []byte{
		0xCD, 0x86, 0x40, // CALL 0x4086
		0x76,       // HALT
		0x3E, 0x07, // LD A,7
		0xC9, // RET
	})
	if p.A != 7 {
		t.Errorf("A = %d, expected 7", p.A)
	}
	if p.SP != testStackTop {
		t.Errorf("SP = 0x%04X, expected 0x%04X", p.SP, testStackTop)
	}
}

func TestConditionalJump(t *testing.T) {
	p := runProgram(t, []byte{
		0xAF,       // XOR A
		0x28, 0x01, // JR Z,+1
		0x76,       // HALT (skipped)
		0x3E, 0x09, // LD A,9
		0x76, // HALT
	})
	if p.A != 9 {
		t.Errorf("A = %d, the taken branch should have been followed", p.A)
	}
}

func TestBlockCopy(t *testing.T) {
	p := newTestCPU([]byte{
		0x21, 0x00, 0x43, // LD HL,0x4300
		0x11, 0x10, 0x43, // LD DE,0x4310
		0x01, 0x03, 0x00, // LD BC,3
		0xED, 0xB0, // LDIR
		0x76, // HALT
	})
	for i, b := range []byte{0xAA, 0xBB, 0xCC} {
		p.WriteByte(0x4300+memory.Pointer(i), b)
	}
	stepUntilHalt(t, p)

	for i, want := range []byte{0xAA, 0xBB, 0xCC} {
		if got := p.ReadByte(0x4310 + memory.Pointer(i)); got != want {
			t.Errorf("copy byte %d = 0x%02X, expected 0x%02X", i, got, want)
		}
	}
	if p.BC() != 0 {
		t.Errorf("BC = %d, expected 0", p.BC())
	}
	if p.GetBool(processor.Parity) {
		t.Error("P/V should be clear when the counter is exhausted")
	}
}

func TestNegate(t *testing.T) {
	p := runProgram(t, []byte{
		0x3E, 0x01, // LD A,1
		0xED, 0x44, // NEG
		0x76, // HALT
	})
	if p.A != 0xFF {
		t.Errorf("A = 0x%02X, expected 0xFF", p.A)
	}
	if !p.GetBool(processor.Carry) {
		t.Error("carry should be set")
	}
	if !p.GetBool(processor.Subtract) {
		t.Error("subtract should be set")
	}
}

func TestIndexedAccess(t *testing.T) {
	for _, prefix := range []byte{0xDD, 0xFD} {
		p := runProgram(t, []byte{
			prefix, 0x21, 0x00, 0x43, // LD ix,0x4300
			prefix, 0x36, 0x01, 0x55, // LD (ix+1),0x55
			prefix, 0x7E, 0x01, // LD A,(ix+1)
			prefix, 0x34, 0x01, // INC (ix+1)
			0x76, // HALT
		})
		if p.A != 0x55 {
			t.Errorf("prefix 0x%02X: A = 0x%02X, expected 0x55", prefix, p.A)
		}
		if got := p.ReadByte(0x4301); got != 0x56 {
			t.Errorf("prefix 0x%02X: memory = 0x%02X, expected 0x56", prefix, got)
		}
	}
}

func TestSixteenBitArithmetic(t *testing.T) {
	p := runProgram(t, []byte{
		0x21, 0xFF, 0xFF, // LD HL,0xFFFF
		0x01, 0x01, 0x00, // LD BC,1
		0x09, // ADD HL,BC
		0x76, // HALT
	})
	if p.HL() != 0 {
		t.Errorf("HL = 0x%04X, expected 0", p.HL())
	}
	if !p.GetBool(processor.Carry) {
		t.Error("carry should be set")
	}

	p = runProgram(t, []byte{
		0xAF,             // XOR A (clears carry)
		0x21, 0x00, 0x10, // LD HL,0x1000
		0x01, 0x01, 0x00, // LD BC,1
		0xED, 0x42, // SBC HL,BC
		0x76, // HALT
	})
	if p.HL() != 0x0FFF {
		t.Errorf("HL = 0x%04X, expected 0x0FFF", p.HL())
	}
}

type cycleCounter struct {
	peripheral.NullDevice
	cycles int
}

func (c *cycleCounter) Step(n int) error {
	c.cycles += n
	return nil
}

func TestPeripheralsStepped(t *testing.T) {
	counter := &cycleCounter{}
	p := NewCPU([]peripheral.Peripheral{
		&ram.Device{Clear: true},
		counter,
	})
	code := []byte{
		0x3E, 0x2A, // LD A,42
		0x76, // HALT
	}
	for i, b := range code {
		p.WriteByte(testOrigin+memory.Pointer(i), b)
	}
	p.Reset(testOrigin, testStackTop)
	stepUntilHalt(t, p)

	// Two instructions at four cycles minimum each.
	if counter.cycles < 8 {
		t.Errorf("peripherals saw %d cycles, expected at least 8", counter.cycles)
	}
}

func TestUntrappedROMCall(t *testing.T) {
	p := runProgram(t, []byte{
		0xCD, 0x00, 0x01, // CALL 0x0100
		0x3E, 0x05, // LD A,5
		0x76, // HALT
	})
	if p.A != 5 {
		t.Errorf("A = %d, execution should continue after the ROM call", p.A)
	}
}

func TestUnimplementedOpcode(t *testing.T) {
	p := newTestCPU([]byte{
		0x27, // DAA
	})
	_, err := p.Step()
	var opErr *processor.UnimplementedOpcodeError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected UnimplementedOpcodeError, got %v", err)
	}
	if opErr.Opcode != 0x27 {
		t.Errorf("opcode = 0x%02X, expected 0x27", opErr.Opcode)
	}
	if opErr.Addr != testOrigin {
		t.Errorf("addr = %v, expected 0x%04X", opErr.Addr, testOrigin)
	}
}

func TestHaltMustBeServiced(t *testing.T) {
	p := newTestCPU([]byte{
		0x76, // HALT
		0x3E, 0x01, // LD A,1
		0x76, // HALT
	})
	if _, err := p.Step(); err != processor.ErrCPUHalt {
		t.Fatalf("expected ErrCPUHalt, got %v", err)
	}
	if _, err := p.Step(); err != processor.ErrHaltNotServiced {
		t.Fatalf("stepping a halted CPU must fail, got %v", err)
	}
	if err := p.Service(); err != nil {
		t.Fatal(err)
	}
	if err := p.Service(); err != processor.ErrNotHalted {
		t.Fatalf("servicing a running CPU must fail, got %v", err)
	}
	stepUntilHalt(t, p)
	if p.A != 1 {
		t.Errorf("A = %d, execution should resume after the HALT", p.A)
	}
}

func BenchmarkDJNZLoop(b *testing.B) {
	p := NewCPU([]peripheral.Peripheral{
		&ram.Device{Clear: true},
	})
	code := []byte{
		0x06, 0xFF, // LD B,255
		0x3C,       // INC A
		0x10, 0xFD, // DJNZ -3
		0x76, // HALT
	}
	for i, v := range code {
		p.WriteByte(testOrigin+memory.Pointer(i), v)
	}

	for i := 0; i < b.N; i++ {
		p.Reset(testOrigin, testStackTop)
		for {
			if _, err := p.Step(); err != nil {
				if err != processor.ErrCPUHalt {
					b.Fatal(err)
				}
				break
			}
		}
	}
}
