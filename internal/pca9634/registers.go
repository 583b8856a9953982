package pca9634

// Register map.
const (
	RegMode1    = 0x00
	RegMode2    = 0x01
	RegLED0     = 0x02 // LED0..LED7 at 0x02..0x09
	RegGrpPWM   = 0x0A // group duty cycle
	RegGrpFreq  = 0x0B // group blink period
	RegLEDOut0  = 0x0C // LEDOUT codes, channels 0-3
	RegLEDOut1  = 0x0D // LEDOUT codes, channels 4-7
	RegSubAddr1 = 0x0E
	RegSubAddr2 = 0x0F
	RegSubAddr3 = 0x10
	RegAllCall  = 0x11
)

// Auto-increment modifiers, OR'd into the first register address.
const (
	AutoIncNone       = 0x00
	AutoIncAll        = 0x80 // all registers
	AutoIncIndividual = 0xA0 // individual brightness registers only
	AutoIncGlobal     = 0xC0 // global control registers only
	AutoIncControl    = 0xE0 // individual + global control
)

// MODE1 bits.
const (
	Mode1Sleep   = 0x10 // oscillator off
	Mode1Sub1    = 0x08
	Mode1Sub2    = 0x04
	Mode1Sub3    = 0x02
	Mode1AllCall = 0x01
)

// MODE2 bits.
const (
	Mode2GroupBlink  = 0x20 // group control is blinking instead of dimming
	Mode2Invert      = 0x10
	Mode2ChangeOnAck = 0x08 // outputs change on ACK instead of STOP
	Mode2TotemPole   = 0x04 // totem pole instead of open drain
	Mode2OutNELow    = 0x00
	Mode2OutNEDrv    = 0x01
	Mode2OutNEHighZ  = 0x02
)

// Fixed addresses.
const (
	ResetAddress   = 0x03
	AllCallAddress = 0x70
)

// resetSequence is the software reset magic sent to ResetAddress.
var resetSequence = [2]byte{0xA5, 0x5A}

// Topology.
const (
	NumChannels = 8
	numSlots    = NumChannels + 2
	slotGrpPWM  = 8
	slotGrpFreq = 9
	frameLen    = numSlots + 2

	// MaxDuty is the "fully on" duty value. It bypasses PWM.
	MaxDuty = 256
)
