package patch

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/chase3718/patchthru/midi"
)

// Patch is a named preset. Selecting it sends bank select and program change
// messages to the downstream instrument. Unset optional fields send nothing.
type Patch struct {
	Name    string
	Channel uint8  // 0-15
	BankMSB *uint8 // raw byte, saturated to 7 bits when sent
	BankLSB *uint8
	Program *uint8

	// Raw holds extra complete messages sent after the program change.
	Raw []gomidi.Message
}

// Messages converts the patch into the ordered messages that select it:
// bank select MSB, bank select LSB, program change, then any raw messages.
func (p Patch) Messages() []gomidi.Message {
	ch := midi.Channel(int(p.Channel))
	var msgs []gomidi.Message
	if p.BankMSB != nil {
		msgs = append(msgs, midi.BankMSB(ch, *p.BankMSB))
	}
	if p.BankLSB != nil {
		msgs = append(msgs, midi.BankLSB(ch, *p.BankLSB))
	}
	if p.Program != nil {
		msgs = append(msgs, midi.Program(ch, *p.Program))
	}
	for _, raw := range p.Raw {
		msg := make(gomidi.Message, len(raw))
		copy(msg, raw)
		msgs = append(msgs, msg)
	}
	return msgs
}

// Byte returns a pointer to v, for building patches in code.
func Byte(v uint8) *uint8 {
	return &v
}
