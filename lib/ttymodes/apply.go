// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ttymodes

import "golang.org/x/sys/unix"

// inputBaudShift is the offset of the CIBAUD field above CBAUD.
const inputBaudShift = 16

// baudCodes maps numeric rates to the Linux CBAUD encoding. Rates not
// listed here are stored in the speed field only.
var baudCodes = map[int64]uint32{
	0:       unix.B0,
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// Setting is one (name, value) pair from a pty_opts request.
type Setting struct {
	Name  string
	Value int64
}

// Apply sets the named mode on termios and reports whether the name was
// recognized. An unrecognized name leaves termios untouched.
func Apply(termios *unix.Termios, name string, value int64) bool {
	mode, ok := Lookup(name)
	if !ok {
		return false
	}
	mode.apply(termios, value)
	return true
}

// ApplyAll applies settings in order and returns the names that were
// not recognized.
func ApplyAll(termios *unix.Termios, settings []Setting) (unknown []string) {
	for _, setting := range settings {
		if !Apply(termios, setting.Name, setting.Value) {
			unknown = append(unknown, setting.Name)
		}
	}
	return unknown
}

func (m Mode) apply(termios *unix.Termios, value int64) {
	switch m.Kind {
	case ControlChar:
		termios.Cc[m.Slot] = uint8(value)
	case FlagBit:
		word := flagWord(termios, m.Field)
		if value != 0 {
			*word |= m.Mask
		} else {
			*word &^= m.Mask
		}
	case Speed:
		code, standard := baudCodes[value]
		if m.Field == InputSpeed {
			termios.Ispeed = uint32(value)
			if standard {
				termios.Cflag = termios.Cflag&^unix.CIBAUD | code<<inputBaudShift
			}
			return
		}
		termios.Ospeed = uint32(value)
		if standard {
			termios.Cflag = termios.Cflag&^unix.CBAUD | code
		}
	}
}

func flagWord(termios *unix.Termios, field Field) *uint32 {
	switch field {
	case InputFlags:
		return &termios.Iflag
	case OutputFlags:
		return &termios.Oflag
	case ControlFlags:
		return &termios.Cflag
	default:
		return &termios.Lflag
	}
}
