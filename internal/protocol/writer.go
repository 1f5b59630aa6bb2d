package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Writer encodes messages onto a buffered stream. Nothing reaches the peer
// until Flush is called.
type Writer struct {
	w   *bufio.Writer
	buf [8]byte
}

// NewWriter wraps w in a buffered message writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteMenuRequest() error {
	return w.put(1, byte(MsgMenuRequest))
}

func (w *Writer) WriteMenuNumItems(n uint8) error {
	return w.put(2, byte(MsgMenuNumItems), n)
}

func (w *Writer) WriteMenuItem(item MenuItem) error {
	return w.put(5, byte(MsgMenuItem),
		byte(item.MenuText), byte(item.PromptText), byte(item.Action), byte(item.Type))
}

// WriteMenu writes MENU_NUM_ITEMS followed by every item.
func (w *Writer) WriteMenu(items []MenuItem) error {
	if len(items) > 255 {
		return fmt.Errorf("menu has %d items, at most 255 fit the count byte", len(items))
	}
	if err := w.WriteMenuNumItems(uint8(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := w.WriteMenuItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) WriteAction(a Action) error {
	w.buf[0] = byte(MsgAction)
	w.buf[1] = byte(a.Code)
	binary.BigEndian.PutUint32(w.buf[2:6], uint32(a.Arg))
	binary.BigEndian.PutUint16(w.buf[6:8], a.TxnID)
	return w.flushBuf(8)
}

func (w *Writer) WriteUpdateRequest(version int32) error {
	w.buf[0] = byte(MsgUpdateRequest)
	binary.BigEndian.PutUint32(w.buf[1:5], uint32(version))
	return w.flushBuf(5)
}

// WriteUpdate writes UPDATE with a 24-bit big-endian length prefix.
func (w *Writer) WriteUpdate(data []byte) error {
	if len(data) > MaxUpdateSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	n := len(data)
	if err := w.put(4, byte(MsgUpdate), byte(n>>16), byte(n>>8), byte(n)); err != nil {
		return err
	}
	_, err := w.w.Write(data)
	return err
}

func (w *Writer) WriteOK(txnID uint16) error {
	w.buf[0] = byte(MsgOK)
	binary.BigEndian.PutUint16(w.buf[1:3], txnID)
	return w.flushBuf(3)
}

func (w *Writer) WriteFail(f Fail) error {
	w.buf[0] = byte(MsgFail)
	binary.BigEndian.PutUint16(w.buf[1:3], f.TxnID)
	w.buf[3] = byte(f.TextID)
	return w.flushBuf(4)
}

func (w *Writer) WriteResponse(r Response) error {
	w.buf[0] = byte(MsgResponse)
	binary.BigEndian.PutUint16(w.buf[1:3], r.TxnID)
	binary.BigEndian.PutUint32(w.buf[3:7], uint32(r.Value))
	return w.flushBuf(7)
}

// Flush sends everything buffered so far.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func (w *Writer) put(n int, b ...byte) error {
	copy(w.buf[:n], b)
	return w.flushBuf(n)
}

// flushBuf copies the first n scratch bytes into the buffered stream.
func (w *Writer) flushBuf(n int) error {
	_, err := w.w.Write(w.buf[:n])
	return err
}
