package chip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/dataflash/pkg"
)

func TestGeometryTable(t *testing.T) {
	tests := []struct {
		density  Density
		name     string
		pageBits uint
		pageSize uint32
		pages    uint32
	}{
		{AT45DB011, "AT45DB011", 9, 264, 512},
		{AT45DB021, "AT45DB021", 9, 264, 1024},
		{AT45DB041, "AT45DB041", 9, 264, 2048},
		{AT45DB081, "AT45DB081", 9, 264, 4096},
		{AT45DB161, "AT45DB161", 10, 528, 4096},
		{AT45DB321, "AT45DB321", 10, 528, 8192},
		{AT45DB641, "AT45DB641", 11, 1056, 8192},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.density.Geometry()
			assert.Equal(t, tt.name, tt.density.String())
			assert.Equal(t, tt.pageBits, g.PageBits)
			assert.Equal(t, tt.pageSize, g.PageSize)
			assert.Equal(t, tt.pages, g.Pages)
			assert.Equal(t, tt.pages/8, g.Blocks())
			// the offset field must hold every byte of the page
			assert.Greater(t, uint32(1)<<g.PageBits, g.PageSize)
			// a packed address must fit in three bytes
			assert.LessOrEqual(t, g.Pack(g.Pages-1, g.PageSize-1), uint32(0xFFFFFF))
		})
	}

	assert.True(t, Density(NumDensities).Geometry().IsZero())
	assert.Equal(t, "unknown", Density(42).String())
}

func TestTranslateRoundTrip(t *testing.T) {
	for d := Density(0); d < NumDensities; d++ {
		g := d.Geometry()
		for _, addr := range []uint32{0, 1, g.PageSize - 1, g.PageSize, g.PageSize + 1,
			0x1000, g.Capacity() / 2, g.Capacity() - 1} {
			pa := g.Translate(addr)
			require.Less(t, pa.Offset, g.PageSize, "%v addr=%#x", d, addr)
			require.Equal(t, addr, pa.Page*g.PageSize+pa.Offset, "%v addr=%#x", d, addr)
			require.Equal(t, addr, g.Linear(pa))
			require.Equal(t, pa, g.Unpack(g.Pack(pa.Page, pa.Offset)))
		}
	}
}

func TestTranslateUsesTruePageSize(t *testing.T) {
	g := AT45DB041.Geometry()

	assert.Equal(t, PageAddress{Page: 15, Offset: 136}, g.Translate(0x1000))
	assert.Equal(t, PageAddress{Page: 0, Offset: 256}, g.Translate(256))
	assert.Equal(t, PageAddress{Page: 1, Offset: 0}, g.Translate(264))

	g = AT45DB641.Geometry()
	assert.Equal(t, PageAddress{Page: 0, Offset: 1024}, g.Translate(1024))
	assert.Equal(t, PageAddress{Page: 1, Offset: 0}, g.Translate(1056))
}

func TestPackAddressBytes(t *testing.T) {
	g := AT45DB041.Geometry()
	packed := g.Pack(15, 136)
	assert.Equal(t, uint32(15<<9|136), packed)
	assert.Equal(t, [3]byte{0x00, 0x1E, 0x88}, AddressBytes(packed))

	g = AT45DB641.Geometry()
	assert.Equal(t, [3]byte{0xFF, 0xF8, 0x00}, AddressBytes(g.Pack(8191, 0)))
}

func TestUniqueIDAddress(t *testing.T) {
	g := AT45DB041.Geometry()
	assert.Equal(t, uint32(2047*264), g.UniqueIDAddress())
	assert.Equal(t, PageAddress{Page: 2047}, g.Translate(g.UniqueIDAddress()))
}

func TestDensityFromCode(t *testing.T) {
	for code := uint8(0); code < 16; code++ {
		d, ok := DensityFromCode(code)
		if code >= 3 && code&1 == 1 {
			require.True(t, ok, "code %d", code)
			assert.Equal(t, Density((code-3)/2), d)
			assert.Equal(t, code, d.Code())
		} else {
			assert.False(t, ok, "code %d", code)
		}
	}
}

func TestParseDensity(t *testing.T) {
	tests := []struct {
		in      string
		want    Density
		wantErr bool
	}{
		{"AT45DB041", AT45DB041, false},
		{"at45db161", AT45DB161, false},
		{"641", AT45DB641, false},
		{"11", AT45DB011, false},
		{" 081 ", AT45DB081, false},
		{"AT45DB999", 0, true},
		{"", 0, true},
		{"DB041", 0, true},
		{"B041", 0, true},
		{"6DB041", 0, true},
		{"AT45DBAT45DB041", 0, true},
		{"0041", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDensity(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, pkg.ErrInvalidDensity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus(t *testing.T) {
	s := NewStatus(AT45DB041, true)
	assert.Equal(t, Status(0x9C), s)
	assert.True(t, s.Ready())
	d, ok := s.Density()
	require.True(t, ok)
	assert.Equal(t, AT45DB041, d)
	assert.Equal(t, "0x9C(ready AT45DB041)", s.String())

	s = NewStatus(AT45DB641, false)
	assert.False(t, s.Ready())
	assert.Equal(t, uint8(15), s.DensityCode())

	assert.Equal(t, "0x80(ready code=0)", Status(0x80).String())
}

func TestBufferOpcodes(t *testing.T) {
	tests := []struct {
		op   BufferOp
		buf  Buffer
		want Opcode
	}{
		{BufferWrite, Buffer1, 0x84},
		{BufferWrite, Buffer2, 0x87},
		{BufferRead, Buffer1, 0xD4},
		{BufferRead, Buffer2, 0xD6},
		{PageToBuffer, Buffer1, 0x53},
		{PageToBuffer, Buffer2, 0x55},
		{BufferToPageErase, Buffer1, 0x83},
		{BufferToPageErase, Buffer2, 0x86},
		{BufferToPageNoErase, Buffer1, 0x88},
		{BufferToPageNoErase, Buffer2, 0x89},
	}

	for _, tt := range tests {
		t.Run(tt.op.String()+"/"+tt.buf.String(), func(t *testing.T) {
			got, ok := BufferOpcode(tt.op, tt.buf)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			op, buf, ok := DecodeBufferOpcode(got)
			require.True(t, ok)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.buf, buf)
		})
	}

	_, ok := BufferOpcode(BufferWrite, Buffer(2))
	assert.False(t, ok)
	_, ok = BufferOpcode(numBufferOps, Buffer1)
	assert.False(t, ok)
	_, _, ok = DecodeBufferOpcode(OpStatusRead)
	assert.False(t, ok)
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "status read", OpStatusRead.String())
	assert.Equal(t, "block erase", OpBlockErase.String())
	assert.Equal(t, "page to buffer buffer1", OpPageToBuffer1.String())
	assert.Equal(t, "buffer write buffer2", OpBuffer2Write.String())
	assert.Equal(t, "opcode 0x9F", Opcode(0x9F).String())
}
