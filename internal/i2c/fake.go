package i2c

// Transfer is one recorded FakeBus transaction.
type Transfer struct {
	Addr uint16
	Data []byte
	Err  error // error returned to the caller, nil on success
}

// FakeBus is a test double that records every transfer and returns
// scripted errors.
type FakeBus struct {
	// Transfers contains every attempted write, failed ones included.
	Transfers []Transfer

	// TxErrors is consumed one entry per Tx call. A nil entry means success.
	// Once exhausted, TxError applies.
	TxErrors []error

	// TxError, if set, is returned by every Tx call after TxErrors is drained.
	TxError error

	// AddrErrors fails every transfer to the given address.
	AddrErrors map[uint16]error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeBus creates an empty FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{}
}

// Tx records the transfer and returns the next scripted error.
// Reads are satisfied with zeros.
func (f *FakeBus) Tx(addr uint16, w, r []byte) error {
	err := f.nextErr(addr)
	data := make([]byte, len(w))
	copy(data, w)
	f.Transfers = append(f.Transfers, Transfer{Addr: addr, Data: data, Err: err})
	if err != nil {
		return err
	}
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (f *FakeBus) nextErr(addr uint16) error {
	if len(f.TxErrors) > 0 {
		err := f.TxErrors[0]
		f.TxErrors = f.TxErrors[1:]
		return err
	}
	if err, ok := f.AddrErrors[addr]; ok {
		return err
	}
	return f.TxError
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.Closed = true
	return nil
}

// WritesTo returns the successful transfers sent to addr, in order.
func (f *FakeBus) WritesTo(addr uint16) [][]byte {
	var out [][]byte
	for _, t := range f.Transfers {
		if t.Addr == addr && t.Err == nil {
			out = append(out, t.Data)
		}
	}
	return out
}

// Reset clears recorded transfers and scripted errors.
func (f *FakeBus) Reset() {
	f.Transfers = nil
	f.TxErrors = nil
	f.TxError = nil
	f.AddrErrors = nil
	f.Closed = false
}
