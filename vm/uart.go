package vm

import "sync"

// UART register addresses, per the MMIO map.
const (
	UARTBaud Word = 0x6000
	UARTOut  Word = 0x6001
	UARTIn   Word = 0x6002
	UARTIFlags Word = 0x6003
	UARTOFlags Word = 0x6004
)

// Input flags (mirrored into RAM at UARTIFlags).
const (
	uartFlagIO Word = 1 << 0 // input FIFO overflowed
	uartFlagDA Word = 1 << 1 // data available
	uartFlagOR Word = 1 << 2 // output FIFO ready
)

// Output-flag strobes (written by the guest to UARTOFlags).
const (
	uartStrobeOW Word = 1 << 0 // output written
	uartStrobeIR Word = 1 << 1 // input read
	uartStrobeRU Word = 1 << 2 // reset
)

const uartBufLen = 0xff

// UART is a byte-oriented serial device backed by bounded FIFO queues.
// Its state is guarded by a mutex so a producer/consumer goroutine can
// call PutInput/GetOutput/InFlags concurrently with the VM thread, which
// only touches the UART from inside the two RAM write callbacks
// ConnectUART registers plus the per-cycle flag mirror.
type UART struct {
	mu sync.Mutex

	input  []byte // FIFO, oldest at index 0
	output []byte // FIFO, oldest at index 0

	writeReg byte
	readReg  byte
	inFlags  Word
}

// NewUART returns a UART in its post-reset state.
func NewUART() *UART {
	return &UART{inFlags: uartFlagOR}
}

// writeRegChanged handles a guest write to UARTOut: it only latches the
// low byte, to be pushed to the output queue on the OW strobe.
func (u *UART) writeRegChanged(content Word) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.writeReg = byte(content)
}

// outputFlagsChanged handles a guest write to UARTOFlags, where each set
// bit is an independent strobe rather than a stored value.
func (u *UART) outputFlagsChanged(content Word) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if content&uartStrobeOW != 0 {
		u.output = append(u.output, u.writeReg)
		switch {
		case len(u.output) > uartBufLen:
			u.output = u.output[1:]
		case len(u.output) == uartBufLen:
			u.inFlags &^= uartFlagOR
		default:
			u.inFlags |= uartFlagOR
		}
	}

	if content&uartStrobeIR != 0 {
		if len(u.input) > 0 {
			u.readReg = u.input[0]
			u.input = u.input[1:]
		} else {
			u.readReg = 0
		}
		if len(u.input) > 0 {
			u.inFlags |= uartFlagDA
		} else {
			u.inFlags &^= uartFlagDA
		}
		u.inFlags &^= uartFlagIO
	}

	if content&uartStrobeRU != 0 {
		u.input = nil
		u.output = nil
		u.writeReg = 0
		u.readReg = 0
		u.inFlags = uartFlagOR
	}
}

// PutInput pushes a byte onto the input FIFO. If the FIFO is already at
// capacity, the oldest byte is dropped and the overflow flag is set.
func (u *UART) PutInput(b byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.input = append(u.input, b)
	u.inFlags |= uartFlagDA
	switch {
	case len(u.input) > uartBufLen:
		u.input = u.input[1:]
	case len(u.input) == uartBufLen:
		u.inFlags |= uartFlagIO
	}
}

// GetOutput pops the oldest queued output byte, if any.
func (u *UART) GetOutput() (byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.output) == 0 {
		return 0, false
	}
	b := u.output[0]
	u.output = u.output[1:]
	return b, true
}

// InFlags returns the current input-flags word (DA/OR/IO).
func (u *UART) InFlags() Word {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inFlags
}

// InputByte returns the last byte latched by an IR strobe (the value
// mirrored into RAM at UARTIn).
func (u *UART) InputByte() Word {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Word(u.readReg)
}

// ConnectUART mounts a UART onto an Image and builds the VM from it: it
// marks UARTIn as a read-only block (so the region is baked into the RAM
// built by New), then registers the two write callbacks and seeds
// UARTIFlags on the resulting VM. Mirrors util.rs's connect_uart, which
// mutates the VmDescription before calling Vm::new.
func ConnectUART(img *Image) (*VM, *UART, error) {
	img.RomBlocks = append(img.RomBlocks, RomBlock{RamAddr: UARTIn, Length: 1})

	v, err := New(img)
	if err != nil {
		return nil, nil, err
	}

	u := NewUART()
	v.RAM.RegisterCallback(UARTOut, u.writeRegChanged)
	v.RAM.RegisterCallback(UARTOFlags, u.outputFlagsChanged)
	v.RAM.SetRaw(UARTIFlags, uartFlagOR)
	return v, u, nil
}

// SyncUART mirrors the UART's in_flags and latched input byte into RAM,
// the way the debugger's cycle() does after every step (§5: "the driver
// reads in_flags/input byte and mirrors them into RAM addresses U_IN,
// U_IFL").
func SyncUART(v *VM, u *UART) {
	v.RAM.SetRaw(UARTIn, u.InputByte())
	v.RAM.SetRaw(UARTIFlags, u.InFlags())
}
