package domain

import "fmt"

// Account is one ledger entry. Card number, PIN and next OTP are fixed-width
// numeric strings compared by exact string match.
type Account struct {
	Name    string `yaml:"name" json:"name"`
	Balance int64  `yaml:"balance" json:"balance"`
	CardNr  string `yaml:"cardNr" json:"card_nr"`
	PinCode string `yaml:"pinCode" json:"-"`
	NextOTP string `yaml:"nextOtp" json:"-"`
}

// FormatCardNr renders a card number received on the wire.
func FormatCardNr(n int32) string {
	return fmt.Sprintf("%04d", n)
}

// FormatPIN renders a PIN received on the wire.
func FormatPIN(n int32) string {
	return fmt.Sprintf("%04d", n)
}

// FormatOTP renders a one-time password received on the wire.
func FormatOTP(n int32) string {
	return fmt.Sprintf("%02d", n)
}

// SuccessorOTP is the password that becomes valid after otp has been used.
func SuccessorOTP(otp int32) string {
	return FormatOTP(otp + 2)
}
