package debugger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"bric/vm"
)

var (
	magicBDB = []byte("BDB\x00")
	magicBPS = []byte("BPS\x00")
)

// Serialize encodes the debugger session (breakpoints plus the embedded
// VM image) as a .bdb byte stream. Halted state, UART state, and
// callbacks are not serialized.
func (d *Debugger) Serialize() ([]byte, error) {
	breakpoints := d.Breakpoints()
	sort.Slice(breakpoints, func(i, j int) bool { return breakpoints[i] < breakpoints[j] })

	if len(breakpoints) > 0xFFFF {
		return nil, fmt.Errorf("breakpoint count %d exceeds 0xFFFF: %w", len(breakpoints), vm.ErrSerialization)
	}

	var buf bytes.Buffer
	buf.Write(magicBDB)
	buf.Write(magicBPS)
	binary.Write(&buf, binary.BigEndian, uint16(len(breakpoints)))
	buf.WriteByte(0x00)
	for _, bp := range breakpoints {
		binary.Write(&buf, binary.BigEndian, bp)
	}
	buf.WriteByte(0x00)

	bvm, err := d.VM.ToImage().Serialize()
	if err != nil {
		return nil, err
	}
	buf.Write(bvm)

	return buf.Bytes(), nil
}

// Deserialize parses a .bdb byte stream into a fresh Debugger. No UART
// is mounted on the returned Debugger; callers that need one must call
// vm.ConnectUART on the deserialized image themselves before wrapping it.
func Deserialize(data []byte) (*Debugger, error) {
	r := data

	chunk, err := checkSlice(r, 4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(chunk, magicBDB) {
		return nil, fmt.Errorf("expected BDB magic, found %x: %w", chunk, vm.ErrDeserialization)
	}
	r = r[4:]

	chunk, err = checkSlice(r, 4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(chunk, magicBPS) {
		return nil, fmt.Errorf("expected BPS magic, found %x: %w", chunk, vm.ErrDeserialization)
	}
	r = r[4:]

	chunk, err = checkSlice(r, 3)
	if err != nil {
		return nil, err
	}
	count, err := extractNumber(chunk)
	if err != nil {
		return nil, err
	}
	r = r[3:]

	breakpoints := make([]vm.Word, count)
	for i := range breakpoints {
		chunk, err = checkSlice(r, 2)
		if err != nil {
			return nil, err
		}
		breakpoints[i] = binary.BigEndian.Uint16(chunk)
		r = r[2:]
	}

	chunk, err = checkSlice(r, 1)
	if err != nil {
		return nil, err
	}
	if chunk[0] != 0x00 {
		return nil, fmt.Errorf("missing breakpoint separator: %w", vm.ErrDeserialization)
	}
	r = r[1:]

	img, err := vm.Deserialize(r)
	if err != nil {
		return nil, err
	}

	v, err := vm.New(img)
	if err != nil {
		return nil, err
	}

	d := New(v)
	for _, bp := range breakpoints {
		d.RegisterBreakpoint(bp)
	}
	return d, nil
}

func checkSlice(input []byte, n int) ([]byte, error) {
	if n > len(input) {
		return nil, fmt.Errorf("file too short or part missing: %w", vm.ErrDeserialization)
	}
	return input[:n], nil
}

func extractNumber(s []byte) (vm.Word, error) {
	if s[2] != 0x00 {
		return 0, fmt.Errorf("invalid region separators: %w", vm.ErrDeserialization)
	}
	return binary.BigEndian.Uint16(s[0:2]), nil
}
