package chip

// BlockPages is the number of pages erased by one block erase.
const BlockPages = 8

// Geometry describes the page organization of one density.
type Geometry struct {
	PageBits uint   // bit width of the in-page offset field of a packed address
	PageSize uint32 // bytes per page (264, 528 or 1056)
	Pages    uint32 // total pages
}

// geometries is indexed by Density.
var geometries = [NumDensities]Geometry{
	{PageBits: 9, PageSize: 264, Pages: 512},
	{PageBits: 9, PageSize: 264, Pages: 1024},
	{PageBits: 9, PageSize: 264, Pages: 2048},
	{PageBits: 9, PageSize: 264, Pages: 4096},
	{PageBits: 10, PageSize: 528, Pages: 4096},
	{PageBits: 10, PageSize: 528, Pages: 8192},
	{PageBits: 11, PageSize: 1056, Pages: 8192},
}

// PageAddress locates a byte inside the page array.
type PageAddress struct {
	Page   uint32
	Offset uint32
}

// IsZero reports whether g has not been set.
func (g Geometry) IsZero() bool {
	return g.PageSize == 0
}

// Capacity returns the total number of addressable bytes.
func (g Geometry) Capacity() uint32 {
	return g.Pages * g.PageSize
}

// Blocks returns the number of 8-page erase blocks.
func (g Geometry) Blocks() uint32 {
	return g.Pages / BlockPages
}

// PageOf returns the page containing linear address addr.
func (g Geometry) PageOf(addr uint32) uint32 {
	return addr / g.PageSize
}

// OffsetOf returns the byte offset of addr within its page.
func (g Geometry) OffsetOf(addr uint32) uint32 {
	return addr % g.PageSize
}

// Translate splits addr into page and offset.
func (g Geometry) Translate(addr uint32) PageAddress {
	return PageAddress{Page: g.PageOf(addr), Offset: g.OffsetOf(addr)}
}

// Linear is the inverse of Translate.
func (g Geometry) Linear(pa PageAddress) uint32 {
	return pa.Page*g.PageSize + pa.Offset
}

// BlockOf returns the erase block containing page.
func (g Geometry) BlockOf(page uint32) uint32 {
	return page / BlockPages
}

// UniqueIDAddress returns the linear address of the reserved identifier:
// the first byte of the last page.
func (g Geometry) UniqueIDAddress() uint32 {
	return (g.Pages - 1) * g.PageSize
}

// Pack encodes page and offset into the 24-bit address sent after an opcode.
func (g Geometry) Pack(page, offset uint32) uint32 {
	return page<<g.PageBits | offset
}

// Unpack decodes a 24-bit packed address.
func (g Geometry) Unpack(packed uint32) PageAddress {
	mask := uint32(1)<<g.PageBits - 1
	return PageAddress{Page: packed >> g.PageBits, Offset: packed & mask}
}

// AddressBytes returns packed as the three bytes transmitted on the bus,
// most significant first.
func AddressBytes(packed uint32) [3]byte {
	return [3]byte{byte(packed >> 16), byte(packed >> 8), byte(packed)}
}
