package dto

// CreateAccountRequest is the request body for account creation.
type CreateAccountRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	CardNr  string `json:"card_nr" binding:"required,len=4,digits"`
	PinCode string `json:"pin_code" binding:"required,len=4,digits"`
	NextOTP string `json:"next_otp" binding:"required,len=2,digits"`
	Balance int64  `json:"balance" binding:"gte=0"`
}

// AccountResponse describes a created account. The PIN and OTP are never echoed.
type AccountResponse struct {
	Name    string `json:"name"`
	CardNr  string `json:"card_nr"`
	Balance int64  `json:"balance"`
}

// CatalogVersionResponse is the response for the catalog version query.
type CatalogVersionResponse struct {
	Version   int32    `json:"version"`
	Languages []string `json:"languages"`
}
