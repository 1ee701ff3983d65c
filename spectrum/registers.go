package spectrum

// AS726xDefaultAddress is the 7-bit I2C address of both AS7262 and AS7263.
const AS726xDefaultAddress = 0x49

// Physical registers exposed on the bus.
const (
	regStatus byte = 0x00
	regWrite  byte = 0x01
	regRead   byte = 0x02
)

// STATUS register bits.
const (
	statusRxValid byte = 0x01 // read result available in READ
	statusTxValid byte = 0x02 // write-select still being processed
)

// virtualWriteFlag marks an address byte written to WRITE as a write-select.
const virtualWriteFlag byte = 0x80

// Virtual register map:
//
//	0x01       hardware version (sensor type)
//	0x04       control setup: RST[7] INT[6] GAIN[5:4] BANK[3:2] DATA_RDY[1]
//	0x05       integration time, 2.8 ms per LSB
//	0x06       device temperature, signed Celsius
//	0x07       LED control: ICL_DRV[5:4] LED_DRV[3] ICL_IND[2:1] LED_IND[0]
//	0x08..0x13 six raw channels, 16-bit big-endian
//	0x14..0x2B six calibrated channels, IEEE-754 float32 big-endian
const (
	vregHWVersion  byte = 0x01
	vregControl    byte = 0x04
	vregIntTime    byte = 0x05
	vregDeviceTemp byte = 0x06
	vregLEDControl byte = 0x07
	vregRawBase    byte = 0x08
	vregCalBase    byte = 0x14

	rawWidth = 2
	calWidth = 4
)

// virtualRegisterCount covers the whole observed virtual address space.
const virtualRegisterCount = int(vregCalBase) + ChannelCount*calWidth

// bitField describes a group of bits inside one virtual register.
type bitField struct {
	reg   byte
	shift uint
	width uint
}

func (f bitField) mask() byte {
	return byte((1<<f.width)-1) << f.shift
}

func (f bitField) max() byte {
	return byte(1<<f.width) - 1
}

func (f bitField) get(v byte) byte {
	return (v & f.mask()) >> f.shift
}

func (f bitField) set(v, val byte) byte {
	return (v &^ f.mask()) | ((val << f.shift) & f.mask())
}

var (
	fieldDataReady = bitField{reg: vregControl, shift: 1, width: 1}
	fieldMode      = bitField{reg: vregControl, shift: 2, width: 2}
	fieldGain      = bitField{reg: vregControl, shift: 4, width: 2}

	fieldIndicatorLED     = bitField{reg: vregLEDControl, shift: 0, width: 1}
	fieldIndicatorCurrent = bitField{reg: vregLEDControl, shift: 1, width: 2}
	fieldBulbLED          = bitField{reg: vregLEDControl, shift: 3, width: 1}
	fieldBulbCurrent      = bitField{reg: vregLEDControl, shift: 4, width: 2}
)

// integrationStep is the duration of one integration time LSB.
const integrationStep = 2800 // microseconds
