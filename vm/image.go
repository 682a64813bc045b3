package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// RomMapping copies Length ROM words starting at RomAddr into RAM
// starting at RamAddr, and marks that RAM range ReadOnly.
type RomMapping struct {
	RomAddr Word
	Length  Word
	RamAddr Word
}

// RomBlock marks a RAM range ReadOnly without copying any ROM content
// into it (used for device registers the guest must not overwrite, e.g.
// the UART's input-data register).
type RomBlock struct {
	RamAddr Word
	Length  Word
}

// RegisterInits holds the six latch registers' power-on values, in the
// order A, D, E, F, G, H used by the .bvm format.
type RegisterInits struct {
	A, D, E, F, G, H Word
}

// Image is the owned, serializable initial state of a VM: PC, ROM, an
// initial RAM snapshot, register inits, and the mappings that turn parts
// of ROM into read-only RAM windows at construction time. Callbacks are
// attached after construction and are never part of an Image.
type Image struct {
	PC        Word
	ROM       []Word
	RAM       [RAMLen]Word
	Registers RegisterInits
	Mappings  []RomMapping
	RomBlocks []RomBlock
}

// NewImage builds an Image with a zeroed RAM snapshot.
func NewImage(pc Word, rom []Word, regs RegisterInits) *Image {
	img := &Image{PC: pc, Registers: regs}
	img.ROM = make([]Word, len(rom))
	copy(img.ROM, rom)
	return img
}

var (
	magicBVM    = []byte("BVM\x00")
	magicRMP    = []byte("RMP\x00")
	magicROM    = []byte("\x00ROM\x00")
	magicRAM    = []byte("\x00RAM\x00")
	sepByte     = byte(0x00)
)

// Serialize encodes the Image as a .bvm byte stream (see §6 of the
// specification). It fails if the ROM or mapping counts exceed 0xFFFF.
func (img *Image) Serialize() ([]byte, error) {
	if len(img.ROM) > 0xFFFF {
		return nil, fmt.Errorf("rom has %d words, exceeds 0xFFFF: %w", len(img.ROM), ErrSerialization)
	}
	if len(img.Mappings) > 0xFFFF {
		return nil, fmt.Errorf("mapping count %d exceeds 0xFFFF: %w", len(img.Mappings), ErrSerialization)
	}

	var buf bytes.Buffer
	buf.Write(magicBVM)
	binary.Write(&buf, binary.BigEndian, img.PC)
	buf.WriteByte(sepByte)

	for _, r := range []Word{img.Registers.A, img.Registers.D, img.Registers.E, img.Registers.F, img.Registers.G, img.Registers.H} {
		binary.Write(&buf, binary.BigEndian, r)
	}
	buf.WriteByte(sepByte)

	buf.Write(magicRMP)
	binary.Write(&buf, binary.BigEndian, uint16(len(img.Mappings)))
	buf.WriteByte(sepByte)
	for _, m := range img.Mappings {
		binary.Write(&buf, binary.BigEndian, m.RomAddr)
		binary.Write(&buf, binary.BigEndian, m.Length)
		binary.Write(&buf, binary.BigEndian, m.RamAddr)
		buf.WriteByte(sepByte)
	}

	buf.Write(magicROM)
	binary.Write(&buf, binary.BigEndian, uint16(len(img.ROM)))
	buf.WriteByte(sepByte)
	for _, w := range img.ROM {
		binary.Write(&buf, binary.BigEndian, w)
	}
	buf.WriteByte(sepByte)

	buf.Write(magicRAM)
	for _, w := range img.RAM {
		binary.Write(&buf, binary.BigEndian, w)
	}

	return buf.Bytes(), nil
}

// checkSlice returns input[:n] or a Deserialization error if input is
// shorter than n, mirroring util.rs's check_slice.
func checkSlice(input []byte, n int) ([]byte, error) {
	if n > len(input) {
		return nil, fmt.Errorf("file too short or part missing: %w", ErrDeserialization)
	}
	return input[:n], nil
}

// extractNumber reads a big-endian word followed by a 0x00 separator
// byte from a 3-byte slice, mirroring util.rs's extract_number.
func extractNumber(s []byte) (Word, error) {
	if s[2] != 0x00 {
		return 0, fmt.Errorf("invalid region separators: %w", ErrDeserialization)
	}
	return binary.BigEndian.Uint16(s[0:2]), nil
}

// Deserialize parses a .bvm byte stream into an Image.
func Deserialize(data []byte) (*Image, error) {
	r := data

	chunk, err := checkSlice(r, 4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(chunk, magicBVM) {
		return nil, fmt.Errorf("expected BVM magic, found %x: %w", chunk, ErrDeserialization)
	}
	r = r[4:]

	chunk, err = checkSlice(r, 3)
	if err != nil {
		return nil, err
	}
	pc, err := extractNumber(chunk)
	if err != nil {
		return nil, err
	}
	r = r[3:]

	var regs [6]Word
	for i := range regs {
		chunk, err = checkSlice(r, 2)
		if err != nil {
			return nil, err
		}
		regs[i] = binary.BigEndian.Uint16(chunk)
		r = r[2:]
	}
	chunk, err = checkSlice(r, 1)
	if err != nil {
		return nil, err
	}
	if chunk[0] != 0x00 {
		return nil, fmt.Errorf("missing register separator: %w", ErrDeserialization)
	}
	r = r[1:]

	chunk, err = checkSlice(r, 4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(chunk, magicRMP) {
		return nil, fmt.Errorf("expected RMP magic, found %x: %w", chunk, ErrDeserialization)
	}
	r = r[4:]

	chunk, err = checkSlice(r, 3)
	if err != nil {
		return nil, err
	}
	mapCount, err := extractNumber(chunk)
	if err != nil {
		return nil, err
	}
	r = r[3:]

	mappings := make([]RomMapping, 0, mapCount)
	for i := 0; i < int(mapCount); i++ {
		chunk, err = checkSlice(r, 7)
		if err != nil {
			return nil, err
		}
		if chunk[6] != 0x00 {
			return nil, fmt.Errorf("invalid mapping separator: %w", ErrDeserialization)
		}
		mappings = append(mappings, RomMapping{
			RomAddr: binary.BigEndian.Uint16(chunk[0:2]),
			Length:  binary.BigEndian.Uint16(chunk[2:4]),
			RamAddr: binary.BigEndian.Uint16(chunk[4:6]),
		})
		r = r[7:]
	}

	chunk, err = checkSlice(r, 5)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(chunk, magicROM) {
		return nil, fmt.Errorf("expected ROM magic, found %x: %w", chunk, ErrDeserialization)
	}
	r = r[5:]

	chunk, err = checkSlice(r, 3)
	if err != nil {
		return nil, err
	}
	romCount, err := extractNumber(chunk)
	if err != nil {
		return nil, err
	}
	r = r[3:]

	rom := make([]Word, romCount)
	for i := range rom {
		chunk, err = checkSlice(r, 2)
		if err != nil {
			return nil, err
		}
		rom[i] = binary.BigEndian.Uint16(chunk)
		r = r[2:]
	}
	chunk, err = checkSlice(r, 1)
	if err != nil {
		return nil, err
	}
	if chunk[0] != 0x00 {
		return nil, fmt.Errorf("missing ROM separator: %w", ErrDeserialization)
	}
	r = r[1:]

	chunk, err = checkSlice(r, 5)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(chunk, magicRAM) {
		return nil, fmt.Errorf("expected RAM magic, found %x: %w", chunk, ErrDeserialization)
	}
	r = r[5:]

	chunk, err = checkSlice(r, 2*RAMLen)
	if err != nil {
		return nil, fmt.Errorf("RAM snapshot has wrong length: %w", ErrDeserialization)
	}

	img := &Image{
		PC:        pc,
		ROM:       rom,
		Mappings:  mappings,
		Registers: RegisterInits{A: regs[0], D: regs[1], E: regs[2], F: regs[3], G: regs[4], H: regs[5]},
	}
	for i := 0; i < RAMLen; i++ {
		img.RAM[i] = binary.BigEndian.Uint16(chunk[i*2 : i*2+2])
	}

	return img, nil
}
