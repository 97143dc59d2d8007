package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Status bytes (channel voice statuses carry the channel in the low nibble).
const (
	StatusNoteOff         byte = 0x80
	StatusNoteOn          byte = 0x90
	StatusPolyAftertouch  byte = 0xA0
	StatusControlChange   byte = 0xB0
	StatusProgramChange   byte = 0xC0
	StatusChannelPressure byte = 0xD0
	StatusPitchBend       byte = 0xE0

	StatusSysExStart   byte = 0xF0
	StatusTimeCode     byte = 0xF1
	StatusSongPosition byte = 0xF2
	StatusSongSelect   byte = 0xF3
	StatusTuneRequest  byte = 0xF6
	StatusSysExEnd     byte = 0xF7
)

// Controller numbers used for bank selection.
const (
	BankSelectMSB uint8 = 0
	BankSelectLSB uint8 = 32
)

const (
	MaxChannel = 15
	MaxData    = 0x7F
)

// sysexLength marks a status whose message runs until StatusSysExEnd.
const sysexLength = -1

// dataLength returns the number of data bytes that follow status. ok is false
// for data bytes, undefined statuses and a stray end-of-exclusive.
func dataLength(status byte) (n int, ok bool) {
	if status < 0x80 {
		return 0, false
	}
	if status < 0xF0 {
		switch status & 0xF0 {
		case StatusProgramChange, StatusChannelPressure:
			return 1, true
		default:
			return 2, true
		}
	}
	switch status {
	case StatusSysExStart:
		return sysexLength, true
	case StatusTimeCode, StatusSongSelect:
		return 1, true
	case StatusSongPosition:
		return 2, true
	case StatusTuneRequest:
		return 0, true
	}
	if IsRealtime(status) {
		return 0, true
	}
	return 0, false
}

// IsRealtime reports whether b is a defined system real-time status
// (clock, start, continue, stop, active sensing, reset).
func IsRealtime(b byte) bool {
	switch b {
	case 0xF8, 0xFA, 0xFB, 0xFC, 0xFE, 0xFF:
		return true
	}
	return false
}

// Clamp7 saturates v into the 7-bit data byte range.
func Clamp7(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > MaxData {
		return MaxData
	}
	return uint8(v)
}

// Channel returns ch when it is a valid channel and 0 otherwise.
func Channel(ch int) uint8 {
	if ch < 0 || ch > MaxChannel {
		return 0
	}
	return uint8(ch)
}

// BankMSB builds the bank select coarse control change.
func BankMSB(channel, value uint8) gomidi.Message {
	return gomidi.ControlChange(Channel(int(channel)), BankSelectMSB, Clamp7(int(value)))
}

// BankLSB builds the bank select fine control change.
func BankLSB(channel, value uint8) gomidi.Message {
	return gomidi.ControlChange(Channel(int(channel)), BankSelectLSB, Clamp7(int(value)))
}

// Program builds a program change.
func Program(channel, program uint8) gomidi.Message {
	return gomidi.ProgramChange(Channel(int(channel)), Clamp7(int(program)))
}
