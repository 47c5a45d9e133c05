package flash

import (
	"github.com/ardnew/dataflash/pkg"
)

// Session is a continuous write session. It keeps one page of the chip in
// the SRAM buffer and programs it back only when a write moves to another
// page or the session is closed, so N sequential bytes within a page cost
// one fetch and one program.
//
// Only one session may be active per Device. Reads and erases are rejected
// while a session is active because main memory does not yet hold the
// buffered data. A session left open after a failed write must still be
// closed to return the device to a known state.
type Session struct {
	dev  *Device
	page uint32
	done bool

	// loaded is false while the buffer does not hold page, i.e. after a
	// fetch failed part way. Such a buffer is never programmed.
	loaded bool
}

// Begin starts a write session at addr. The page containing addr is loaded
// into the buffer so bytes of that page that are not written survive the
// program at the end of the session.
func (d *Device) Begin(addr uint32) (*Session, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkIdle(); err != nil {
		return nil, err
	}
	if err := d.checkRange(addr, 1); err != nil {
		return nil, err
	}

	page := d.geom.PageOf(addr)
	if err := d.fetchPage(page); err != nil {
		return nil, err
	}

	s := &Session{dev: d, page: page, loaded: true}
	d.session = s

	pkg.LogDebug(pkg.ComponentSession, "session started",
		"addr", pkg.Addr(addr),
		"page", page)
	return s, nil
}

// Page returns the page currently held in the buffer.
func (s *Session) Page() uint32 {
	s.dev.mutex.Lock()
	defer s.dev.mutex.Unlock()
	return s.page
}

// Put writes one byte at addr.
func (s *Session) Put(addr uint32, v byte) error {
	return s.Write(addr, []byte{v})
}

// Write writes p starting at addr. When the write reaches a page other than
// the buffered one, the buffer is programmed to its page and the new page
// is fetched before any of its bytes are overwritten.
func (s *Session) Write(addr uint32, p []byte) error {
	d := s.dev
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkOpen(); err != nil {
		return err
	}
	if s.done {
		return pkg.ErrNoSession
	}
	if len(p) == 0 {
		return nil
	}
	if err := d.checkRange(addr, len(p)); err != nil {
		return err
	}

	for len(p) > 0 {
		pa := d.geom.Translate(addr)
		if !s.loaded || pa.Page != s.page {
			if err := s.load(pa.Page); err != nil {
				return err
			}
		}

		n := min(uint32(len(p)), d.geom.PageSize-pa.Offset)
		if err := d.writeBuffer(pa.Offset, p[:n]); err != nil {
			return err
		}
		addr += n
		p = p[n:]
	}
	return nil
}

// Close programs the buffered page and ends the session. Closing an ended
// session is a no-op.
func (s *Session) Close() error {
	d := s.dev
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if s.done {
		return nil
	}
	if err := d.checkOpen(); err != nil {
		return err
	}
	return s.stop()
}

// load programs the buffered page, if any, and fetches page in its place.
// Must be called with the device mutex held.
func (s *Session) load(page uint32) error {
	d := s.dev
	if s.loaded {
		if err := d.programPage(s.page); err != nil {
			return err
		}
	}
	s.loaded = false
	if err := d.fetchPage(page); err != nil {
		pkg.LogWarn(pkg.ComponentSession, "fetch failed, buffer discarded",
			"page", page,
			"err", err)
		return err
	}
	s.page = page
	s.loaded = true
	return nil
}

// stop must be called with the device mutex held. The session ends even if
// the final program fails. A buffer left invalid by a failed fetch is
// discarded rather than programmed.
func (s *Session) stop() error {
	s.done = true
	if s.dev.session == s {
		s.dev.session = nil
	}
	if !s.loaded {
		pkg.LogDebug(pkg.ComponentSession, "session stopped without program",
			"page", s.page)
		return nil
	}
	err := s.dev.programPage(s.page)
	pkg.LogDebug(pkg.ComponentSession, "session stopped",
		"page", s.page,
		"err", err)
	return err
}
