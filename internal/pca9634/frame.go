package pca9634

import "fmt"

// LEDOut is the 2-bit per-channel output mode held in LEDOUT0/LEDOUT1.
type LEDOut byte

const (
	LEDOff        LEDOut = 0x00
	LEDOn         LEDOut = 0x01 // fully on, PWM bypassed
	LEDIndividual LEDOut = 0x02 // individual PWM
	LEDGroup      LEDOut = 0x03 // individual PWM plus group dimming/blinking
)

func (l LEDOut) String() string {
	switch l {
	case LEDOff:
		return "OFF"
	case LEDOn:
		return "ON"
	case LEDIndividual:
		return "INDIV"
	case LEDGroup:
		return "GROUP"
	}
	return fmt.Sprintf("LEDOut(%d)", byte(l))
}

// Frame is the 12-byte payload written from LED0 through LEDOUT1:
// 8 channel duty bytes, GRPPWM, GRPFREQ, LEDOUT0, LEDOUT1.
type Frame [frameLen]byte

// encodeChannel derives the duty register byte and LEDOUT code for one channel.
func encodeChannel(duty uint16, groupMember bool) (byte, LEDOut) {
	switch {
	case duty >= MaxDuty:
		if groupMember {
			return 0xFF, LEDGroup
		}
		return 0xFF, LEDOn
	case duty == 0:
		return 0x00, LEDOff
	default:
		if groupMember {
			return byte(duty), LEDGroup
		}
		return byte(duty), LEDIndividual
	}
}

func encodeFrame(duties *[numSlots]uint16, members *[NumChannels]bool) Frame {
	var f Frame
	var ledout uint16
	for ch := 0; ch < NumChannels; ch++ {
		b, code := encodeChannel(duties[ch], members[ch])
		f[ch] = b
		ledout |= uint16(code) << (2 * ch)
	}
	f[slotGrpPWM] = byte(duties[slotGrpPWM])
	f[slotGrpFreq] = byte(duties[slotGrpFreq])
	f[numSlots] = byte(ledout)
	f[numSlots+1] = byte(ledout >> 8)
	return f
}

// Duty returns the register byte for channel ch.
func (f Frame) Duty(ch int) byte {
	return f[ch]
}

// GroupPWM returns the GRPPWM byte.
func (f Frame) GroupPWM() byte {
	return f[slotGrpPWM]
}

// GroupFrequency returns the GRPFREQ byte.
func (f Frame) GroupFrequency() byte {
	return f[slotGrpFreq]
}

// LEDOutBitmap returns LEDOUT1:LEDOUT0 as one 16-bit value, channel 0 in bits 0-1.
func (f Frame) LEDOutBitmap() uint16 {
	return uint16(f[numSlots]) | uint16(f[numSlots+1])<<8
}

// LEDOut returns the output mode encoded for channel ch.
func (f Frame) LEDOut(ch int) LEDOut {
	return LEDOut((f.LEDOutBitmap() >> (2 * ch)) & 0x03)
}
