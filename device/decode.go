package device

import "log"

// PlayMessage decodes one complete channel-voice message of 1 to 3 raw
// bytes and forwards it to the engine. The channel is the low nibble of
// the status byte, the operation its high nibble. Unrecognized statuses
// and truncated messages are logged and dropped; this path never panics
// on malformed input. The decoder keeps no state between calls.
func (d *Device) PlayMessage(msg []byte) {
	engine := d.engine
	if engine == nil || len(msg) == 0 {
		return
	}

	channel := int(msg[0] & 0x0F)

	switch msg[0] & 0xF0 {
	case 0x80:
		if len(msg) >= 2 {
			engine.NoteOff(channel, int(msg[1]))
			return
		}
	case 0x90:
		if len(msg) >= 3 {
			engine.NoteOn(channel, int(msg[1]), int(msg[2]))
			return
		}
	case 0xA0:
		if len(msg) >= 3 {
			engine.KeyPressure(channel, int(msg[1]), int(msg[2]))
			return
		}
	case 0xB0:
		if len(msg) >= 3 {
			engine.ControlChange(channel, int(msg[1]), int(msg[2]))
			return
		}
	case 0xC0:
		if len(msg) >= 2 {
			engine.ProgramChange(channel, int(msg[1]))
			return
		}
	case 0xD0:
		if len(msg) >= 2 {
			engine.ChannelPressure(channel, int(msg[1]))
			return
		}
	case 0xE0:
		if len(msg) >= 3 {
			// 14-bit value, LSB first.
			engine.PitchBend(channel, int(msg[1])+int(msg[2])<<7)
			return
		}
	}
	log.Printf("midi: unknown MIDI message % X", msg)
}

// PlaySysex hands a system-exclusive buffer to the engine verbatim, with
// no response requested.
func (d *Device) PlaySysex(data []byte) {
	engine := d.engine
	if engine == nil {
		return
	}
	engine.Sysex(data)
}
