// Package protocol implements the ATM wire format: one type byte followed by
// a fixed-width, big-endian payload. The only variable-length message is
// UPDATE, whose payload is prefixed by a 24-bit length.
package protocol

import (
	"errors"
	"fmt"
)

// MessageType is the leading byte of every message.
type MessageType uint8

const (
	MsgMenuRequest   MessageType = 0 // C->S
	MsgMenuNumItems  MessageType = 1 // S->C
	MsgAction        MessageType = 2 // C->S
	MsgUpdateRequest MessageType = 3 // C->S
	MsgMenuItem      MessageType = 4 // S->C
	MsgOK            MessageType = 5 // S->C
	MsgFail          MessageType = 6 // S->C
	MsgUpdate        MessageType = 7 // S->C
	MsgResponse      MessageType = 8 // S->C
)

var messageNames = map[MessageType]string{
	MsgMenuRequest:   "MENU_REQUEST",
	MsgMenuNumItems:  "MENU_NUM_ITEMS",
	MsgAction:        "ACTION",
	MsgUpdateRequest: "UPDATE_REQUEST",
	MsgMenuItem:      "MENU_ITEM",
	MsgOK:            "OK",
	MsgFail:          "FAIL",
	MsgUpdate:        "UPDATE",
	MsgResponse:      "RESPONSE",
}

func (m MessageType) String() string {
	if name, ok := messageNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", uint8(m))
}

// TypeBits is the per-action bitfield carried by MENU_ITEM.
// Bits 0-4 are reserved.
type TypeBits uint8

const (
	TypeRes1 TypeBits = 1 << iota
	TypeRes2
	TypeRes3
	TypeRes4
	TypeRes5
	// TypeRecvFollowup: after executing, read one more MENU_ITEM and run it immediately.
	TypeRecvFollowup
	// TypeRecvUint32: after executing, read a RESPONSE instead of OK/FAIL.
	TypeRecvUint32
	// TypeSndUint32: before executing, prompt for the int32 ACTION argument.
	TypeSndUint32
)

// Has reports whether all bits in flag are set.
func (t TypeBits) Has(flag TypeBits) bool {
	return t&flag == flag
}

// ActionCode identifies the operation requested by an ACTION message.
type ActionCode uint8

const (
	ActBalance       ActionCode = 0
	ActDeposit       ActionCode = 1
	ActWithdraw      ActionCode = 2
	ActUpdateRequest ActionCode = 3 // reserved, never sent as an ACTION
	ActLoginCardNo   ActionCode = 5
	ActLoginPIN      ActionCode = 6
	ActLogout        ActionCode = 7
	ActOTPWithdraw   ActionCode = 8
)

var actionNames = map[ActionCode]string{
	ActBalance:       "BALANCE",
	ActDeposit:       "DEPOSIT",
	ActWithdraw:      "WITHDRAW",
	ActUpdateRequest: "UPDATE_REQUEST",
	ActLoginCardNo:   "LOGIN_CARDNO",
	ActLoginPIN:      "LOGIN_PIN",
	ActLogout:        "LOGOUT",
	ActOTPWithdraw:   "OTP_WITHDRAW",
}

func (a ActionCode) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ActionCode(%d)", uint8(a))
}

// StringID is a key into the per-language text tables of the catalog.
type StringID uint8

const (
	SNone          StringID = 0
	SBanner        StringID = 1
	SBalance       StringID = 2
	SDeposit       StringID = 3
	SWithdraw      StringID = 4
	SBalanceText   StringID = 5
	SDepositText   StringID = 6
	SWithdrawText  StringID = 7
	SLogin         StringID = 8
	SErrorText     StringID = 9
	SAmountError   StringID = 10
	SLogout        StringID = 11
	SLogoutText    StringID = 12
	SLoginTextCard StringID = 13
	SLoginTextPIN  StringID = 14
	SOTPText       StringID = 15
)

// NoArgument is sent in the ACTION argument field when the item lacks TypeSndUint32.
const NoArgument int32 = -1

// MaxUpdateSize is the largest catalog that fits the 24-bit UPDATE length.
const MaxUpdateSize = 1<<24 - 1

var (
	// ErrFraming means the peer closed or stalled mid-message.
	ErrFraming = errors.New("protocol framing error")
	// ErrUnexpectedMessage means a message of the wrong type arrived.
	ErrUnexpectedMessage = errors.New("unexpected message type")
	// ErrPayloadTooLarge means an UPDATE payload exceeds MaxUpdateSize.
	ErrPayloadTooLarge = errors.New("update payload too large")
)

// MenuItem describes one offered action. Ephemeral: lives for one menu round.
type MenuItem struct {
	MenuText   StringID
	PromptText StringID
	Action     ActionCode
	Type       TypeBits
}

// Action is a client request to execute an action.
type Action struct {
	Code  ActionCode
	Arg   int32
	TxnID uint16
}

// Fail reports a business-rule failure for a transaction.
type Fail struct {
	TxnID  uint16
	TextID StringID
}

// Response carries an integer result for a transaction.
type Response struct {
	TxnID uint16
	Value int32
}

// ClampInt32 narrows a ledger amount to the RESPONSE field width.
func ClampInt32(v int64) int32 {
	switch {
	case v > 1<<31-1:
		return 1<<31 - 1
	case v < -1<<31:
		return -1 << 31
	default:
		return int32(v)
	}
}
