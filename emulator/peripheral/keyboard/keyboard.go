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

package keyboard

import (
	"errors"

	"github.com/Cronan/zx81-chess/emulator/processor"
)

const MaxEvents = 64

// KeyNone is latched into LAST_K when no key is pending. The guest
// polls for it after every HALT.
const KeyNone uint16 = 0xFFFF

type Device struct {
	p      processor.Processor
	events chan uint16
}

func (m *Device) Install(p processor.Processor) error {
	m.p = p
	m.events = make(chan uint16, MaxEvents)
	return nil
}

func (m *Device) Name() string {
	return "Keyboard Latch"
}

func (m *Device) Reset() {
	for {
		select {
		case <-m.events:
		default:
			return
		}
	}
}

func (m *Device) Step(int) error {
	return nil
}

// Enqueue queues a key code for the next HALT service. Codes are
// delivered strictly in order, one per service.
func (m *Device) Enqueue(code uint16) error {
	select {
	case m.events <- code:
		return nil
	default:
		return errors.New("event queue is full")
	}
}

func (m *Device) Pending() int {
	return len(m.events)
}

// Deliver latches the oldest queued key, or KeyNone, into LAST_K.
// The CPU calls this exactly once per HALT service.
func (m *Device) Deliver() {
	select {
	case code := <-m.events:
		m.p.WriteWord(processor.SysLastK, code)
	default:
		m.p.WriteWord(processor.SysLastK, KeyNone)
	}
}

// Encode maps a host character to its ZX81 key code. Only the keys
// the chess program reads are mapped.
func Encode(r rune) (uint16, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return uint16(0x26 + r - 'a'), true
	case r >= 'A' && r <= 'Z':
		return uint16(0x26 + r - 'A'), true
	case r >= '1' && r <= '8':
		return uint16(0x1D + r - '1'), true
	default:
		return 0, false
	}
}
