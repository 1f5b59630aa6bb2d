package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader decodes messages from a byte stream. Callers read the type byte
// with ReadType or Expect and then the matching body.
type Reader struct {
	r   *bufio.Reader
	buf [7]byte
}

// NewReader wraps r in a buffered message reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadType reads the leading type byte of the next message.
// A clean close at a message boundary is returned as io.EOF.
func (r *Reader) ReadType() (MessageType, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w: message type: %w", ErrFraming, err)
	}
	return MessageType(b), nil
}

// Expect reads the type byte and fails with ErrUnexpectedMessage unless it
// is one of want.
func (r *Reader) Expect(want ...MessageType) (MessageType, error) {
	got, err := r.ReadType()
	if err != nil {
		return 0, err
	}
	for _, w := range want {
		if got == w {
			return got, nil
		}
	}
	return got, fmt.Errorf("%w: got %s, want %v", ErrUnexpectedMessage, got, want)
}

// ReadMenuNumItems reads the MENU_NUM_ITEMS body.
func (r *Reader) ReadMenuNumItems() (uint8, error) {
	b, err := r.fill("menu item count", 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadMenuItem reads the MENU_ITEM body.
func (r *Reader) ReadMenuItem() (MenuItem, error) {
	b, err := r.fill("menu item", 4)
	if err != nil {
		return MenuItem{}, err
	}
	return MenuItem{
		MenuText:   StringID(b[0]),
		PromptText: StringID(b[1]),
		Action:     ActionCode(b[2]),
		Type:       TypeBits(b[3]),
	}, nil
}

// ReadAction reads the ACTION body.
func (r *Reader) ReadAction() (Action, error) {
	b, err := r.fill("action", 7)
	if err != nil {
		return Action{}, err
	}
	return Action{
		Code:  ActionCode(b[0]),
		Arg:   int32(binary.BigEndian.Uint32(b[1:5])),
		TxnID: binary.BigEndian.Uint16(b[5:7]),
	}, nil
}

// ReadUpdateRequest reads the catalog version carried by UPDATE_REQUEST.
func (r *Reader) ReadUpdateRequest() (int32, error) {
	b, err := r.fill("catalog version", 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadUpdate reads the 24-bit length prefix and the catalog bytes of UPDATE.
func (r *Reader) ReadUpdate() ([]byte, error) {
	b, err := r.fill("update length", 3)
	if err != nil {
		return nil, err
	}
	n := int(b[0])<<16 | int(b[1])<<8 | int(b[2])
	data := make([]byte, n)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, framing("update payload", err)
	}
	return data, nil
}

// ReadOK reads the echoed transaction id of OK.
func (r *Reader) ReadOK() (uint16, error) {
	b, err := r.fill("ok", 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadFail reads the FAIL body.
func (r *Reader) ReadFail() (Fail, error) {
	b, err := r.fill("fail", 3)
	if err != nil {
		return Fail{}, err
	}
	return Fail{
		TxnID:  binary.BigEndian.Uint16(b[0:2]),
		TextID: StringID(b[2]),
	}, nil
}

// ReadResponse reads the RESPONSE body.
func (r *Reader) ReadResponse() (Response, error) {
	b, err := r.fill("response", 6)
	if err != nil {
		return Response{}, err
	}
	return Response{
		TxnID: binary.BigEndian.Uint16(b[0:2]),
		Value: int32(binary.BigEndian.Uint32(b[2:6])),
	}, nil
}

func (r *Reader) fill(field string, n int) ([]byte, error) {
	b := r.buf[:n]
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, framing(field, err)
	}
	return b, nil
}

func framing(field string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: %w", ErrFraming, field, err)
}
