// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ttymodes

import "golang.org/x/sys/unix"

// Kind distinguishes how a mode is applied to termios.
type Kind int

const (
	// ControlChar sets one slot of the c_cc array to the value.
	ControlChar Kind = iota

	// FlagBit sets the mask bits in a flag word when the value is
	// nonzero and clears them when it is zero.
	FlagBit

	// Speed sets the input or output baud rate.
	Speed
)

func (k Kind) String() string {
	switch k {
	case ControlChar:
		return "control-char"
	case FlagBit:
		return "flag-bit"
	case Speed:
		return "speed"
	default:
		return "unknown"
	}
}

// Field selects the termios word a FlagBit or Speed mode acts on.
type Field int

const (
	InputFlags Field = iota
	OutputFlags
	ControlFlags
	LocalFlags
	InputSpeed
	OutputSpeed
)

// Mode is one entry of the table.
type Mode struct {
	// Name is the lower-case mode name used on the wire.
	Name string

	Kind Kind

	// Field is the flag word (FlagBit) or speed direction (Speed).
	// Unused for ControlChar.
	Field Field

	// Mask is the bit pattern a FlagBit mode sets or clears.
	Mask uint32

	// Slot is the c_cc index a ControlChar mode writes.
	Slot int
}

func char(name string, slot int) Mode {
	return Mode{Name: name, Kind: ControlChar, Slot: slot}
}

func flag(name string, field Field, mask uint32) Mode {
	return Mode{Name: name, Kind: FlagBit, Field: field, Mask: mask}
}

// Table lists every mode this build understands, in the order of the
// SSH terminal-mode opcode list.
var Table = []Mode{
	char("vintr", unix.VINTR),
	char("vquit", unix.VQUIT),
	char("verase", unix.VERASE),
	char("vkill", unix.VKILL),
	char("veof", unix.VEOF),
	char("veol", unix.VEOL),
	char("veol2", unix.VEOL2),
	char("vstart", unix.VSTART),
	char("vstop", unix.VSTOP),
	char("vsusp", unix.VSUSP),
	char("vreprint", unix.VREPRINT),
	char("vwerase", unix.VWERASE),
	char("vlnext", unix.VLNEXT),
	char("vswtch", unix.VSWTC),
	char("vdiscard", unix.VDISCARD),

	flag("ignpar", InputFlags, unix.IGNPAR),
	flag("parmrk", InputFlags, unix.PARMRK),
	flag("inpck", InputFlags, unix.INPCK),
	flag("istrip", InputFlags, unix.ISTRIP),
	flag("inlcr", InputFlags, unix.INLCR),
	flag("igncr", InputFlags, unix.IGNCR),
	flag("icrnl", InputFlags, unix.ICRNL),
	flag("iuclc", InputFlags, unix.IUCLC),
	flag("ixon", InputFlags, unix.IXON),
	flag("ixany", InputFlags, unix.IXANY),
	flag("ixoff", InputFlags, unix.IXOFF),
	flag("imaxbel", InputFlags, unix.IMAXBEL),
	flag("iutf8", InputFlags, unix.IUTF8),

	flag("isig", LocalFlags, unix.ISIG),
	flag("icanon", LocalFlags, unix.ICANON),
	flag("xcase", LocalFlags, unix.XCASE),
	flag("echo", LocalFlags, unix.ECHO),
	flag("echoe", LocalFlags, unix.ECHOE),
	flag("echok", LocalFlags, unix.ECHOK),
	flag("echonl", LocalFlags, unix.ECHONL),
	flag("noflsh", LocalFlags, unix.NOFLSH),
	flag("tostop", LocalFlags, unix.TOSTOP),
	flag("iexten", LocalFlags, unix.IEXTEN),
	flag("echoctl", LocalFlags, unix.ECHOCTL),
	flag("echoke", LocalFlags, unix.ECHOKE),
	flag("pendin", LocalFlags, unix.PENDIN),

	flag("opost", OutputFlags, unix.OPOST),
	flag("olcuc", OutputFlags, unix.OLCUC),
	flag("onlcr", OutputFlags, unix.ONLCR),
	flag("ocrnl", OutputFlags, unix.OCRNL),
	flag("onocr", OutputFlags, unix.ONOCR),
	flag("onlret", OutputFlags, unix.ONLRET),

	flag("cs7", ControlFlags, unix.CS7),
	flag("cs8", ControlFlags, unix.CS8),
	flag("parenb", ControlFlags, unix.PARENB),
	flag("parodd", ControlFlags, unix.PARODD),

	{Name: "tty_op_ispeed", Kind: Speed, Field: InputSpeed},
	{Name: "tty_op_ospeed", Kind: Speed, Field: OutputSpeed},
}

var byName = func() map[string]Mode {
	index := make(map[string]Mode, len(Table))
	for _, mode := range Table {
		index[mode.Name] = mode
	}
	return index
}()

// Lookup returns the mode with the given name.
func Lookup(name string) (Mode, bool) {
	mode, ok := byName[name]
	return mode, ok
}
